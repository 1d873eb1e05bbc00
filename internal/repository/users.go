package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-catalog/internal/domain"
)

// UsersRepository reads the subjects that identities resolve to.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a user with the given role.
func (r *UsersRepository) Create(ctx context.Context, email string, name *string, role domain.Role) (domain.User, error) {
	const query = `
        INSERT INTO users (email, name, role)
        VALUES ($1, $2, $3)
        RETURNING id, email, name, role, created_at
    `
	return scanUser(r.pool.QueryRow(ctx, query, email, name, role))
}

// UpsertRole creates the user if needed and sets its role.
func (r *UsersRepository) UpsertRole(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	const query = `
        INSERT INTO users (email, role)
        VALUES ($1, $2)
        ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role
        RETURNING id, email, name, role, created_at
    `
	return scanUser(r.pool.QueryRow(ctx, query, email, role))
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `SELECT id, email, name, role, created_at FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt); err != nil {
		return domain.User{}, err
	}
	user.Role = domain.Role(role)
	return user, nil
}
