package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// RepositoryPort defines data access methods for clients.
type RepositoryPort interface {
	List(ctx context.Context) ([]Client, error)
	Search(ctx context.Context, text string) ([]Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Create(ctx context.Context, input ClientInput) (*Client, error)
	Update(ctx context.Context, id int64, input ClientInput) (*Client, error)
	Delete(ctx context.Context, id int64) error
	CountInvoices(ctx context.Context, id int64) (int64, error)
}

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all clients, newest first.
func (r *Repository) List(ctx context.Context) ([]Client, error) {
	return r.query(ctx,
		`SELECT id, name, email, address, created_at FROM clients ORDER BY id DESC`)
}

// Search matches name or email, case-insensitive substring, ordered by name.
func (r *Repository) Search(ctx context.Context, text string) ([]Client, error) {
	return r.query(ctx,
		`SELECT id, name, email, address, created_at FROM clients
		 WHERE name ILIKE $1 OR email ILIKE $1 ORDER BY name`, "%"+text+"%")
}

// Get fetches one client.
func (r *Repository) Get(ctx context.Context, id int64) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, address, created_at FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return &c, nil
}

// Create inserts a client.
func (r *Repository) Create(ctx context.Context, input ClientInput) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx,
		`INSERT INTO clients (name, email, address) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		input.Name, input.Email, input.Address,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	c.Name = input.Name
	c.Email = input.Email
	c.Address = input.Address
	return &c, nil
}

// Update rewrites the client record.
func (r *Repository) Update(ctx context.Context, id int64, input ClientInput) (*Client, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET name = $1, email = $2, address = $3 WHERE id = $4`,
		input.Name, input.Email, input.Address, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return r.Get(ctx, id)
}

// Delete removes the client row. The invoice count check happens in the
// service; a foreign key violation here means an invoice was created after
// that check and still maps to a conflict.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: client %d has invoices", shared.ErrConflict, id)
		}
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return nil
}

// CountInvoices counts every invoice referencing the client, archived
// included. Archived invoices keep the client row pinned.
func (r *Repository) CountInvoices(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM invoices WHERE client_id = $1`, id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return count, nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Client, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
