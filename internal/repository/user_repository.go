package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	// Create inserts the user. The role must exist in the roles table.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

const userColumns = `u.id, u.name, u.email, u.password_hash, r.name, u.created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role_id)
        SELECT $1, $2, $3, r.id FROM roles r WHERE r.name = $4
        RETURNING id, created_at`

	return mapError(r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE u.email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := mapError(r.db.QueryRow(ctx, query, id).Scan(&exists)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users u JOIN roles r ON r.id = u.role_id
        ORDER BY u.seq ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, mapError(rows.Err())
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// nullableUser receives the columns of an optional LEFT JOINed user.
type nullableUser struct {
	id        *string
	name      *string
	email     *string
	role      *string
	createdAt *time.Time
}

func (u nullableUser) summary() *domain.UserSummary {
	if u.id == nil {
		return nil
	}
	summary := &domain.UserSummary{ID: *u.id}
	if u.name != nil {
		summary.Name = *u.name
	}
	if u.email != nil {
		summary.Email = *u.email
	}
	if u.role != nil {
		summary.Role = domain.Role(*u.role)
	}
	if u.createdAt != nil {
		summary.CreatedAt = *u.createdAt
	}
	return summary
}
