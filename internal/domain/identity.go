package domain

// Role is the coarse permission level carried by an identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the verified caller. A nil *Identity means anonymous.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin is nil-safe.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
