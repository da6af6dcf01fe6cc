package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/shared"
)

// RepositoryPort defines data access methods for user administration.
type RepositoryPort interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (*Account, error)
	UpdateRole(ctx context.Context, id int64, role shared.Role) error
	CountAdmins(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence for user administration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all accounts, newest first.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, role, created_at FROM users ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get fetches one account.
func (r *Repository) Get(ctx context.Context, id int64) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return &a, nil
}

// UpdateRole rewrites the account role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role shared.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return nil
}

// CountAdmins counts accounts holding the admin role.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM users WHERE role = 'admin'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return count, nil
}

// Delete removes the account and detaches its dependent records in one
// transaction. Cleanup is an explicit, enumerated list: audit rows keep the
// record with the actor nulled out. No runtime schema discovery.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE audit_logs SET actor_id = NULL WHERE actor_id = $1`, id); err != nil {
			return fmt.Errorf("detach audit rows: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return nil
}
