package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// RepositoryPort defines data access methods for user accounts.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, email, passwordHash string, role shared.Role) (*User, error)
}

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.find(ctx, `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.find(ctx, `SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1`, id)
}

// Create inserts a user. Duplicate emails yield ErrConflict.
func (r *Repository) Create(ctx context.Context, email, passwordHash string, role shared.Role) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		email, passwordHash, role,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	u.Email = email
	u.PasswordHash = passwordHash
	u.Role = role
	return &u, nil
}

func (r *Repository) find(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return &u, nil
}
