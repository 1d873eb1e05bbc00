package domain

import "time"

// User is the subject behind an identity. Only ID and Role matter to the catalog.
type User struct {
	ID        int64
	Email     string
	Name      *string
	Role      Role
	CreatedAt time.Time
}
