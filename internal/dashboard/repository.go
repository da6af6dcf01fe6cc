package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/shared"
)

// RepositoryPort exposes the aggregate queries the dashboard needs.
type RepositoryPort interface {
	Totals(ctx context.Context) (*TotalsReport, error)
	Monthly(ctx context.Context) ([]MonthlyRevenue, error)
	StatusBreakdown(ctx context.Context) ([]StatusBreakdown, error)
	TopClients(ctx context.Context, limit int) ([]TopClient, error)
}

// Repository runs dashboard aggregates against Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Totals(ctx context.Context) (*TotalsReport, error) {
	report := &TotalsReport{ByClient: []ClientTotals{}}
	err := r.pool.QueryRow(ctx, `
        SELECT COALESCE(SUM(total_ttc), 0)
        FROM invoices
        WHERE archived_at IS NULL`).Scan(&report.TotalInvoiced)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard totals: %v", shared.ErrStorage, err)
	}
	err = r.pool.QueryRow(ctx, `
        SELECT COALESCE(SUM(p.amount), 0)
        FROM payments p
        JOIN invoices i ON i.id = p.invoice_id
        WHERE i.archived_at IS NULL`).Scan(&report.TotalPaid)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard totals: %v", shared.ErrStorage, err)
	}
	report.TotalDue = report.TotalInvoiced - report.TotalPaid
	if report.TotalDue < 0 {
		report.TotalDue = 0
	}

	rows, err := r.pool.Query(ctx, `
        SELECT c.name, COALESCE(SUM(i.total_ttc), 0), COALESCE(SUM(p.amount), 0)
        FROM clients c
        LEFT JOIN invoices i ON i.client_id = c.id AND i.archived_at IS NULL
        LEFT JOIN payments p ON p.invoice_id = i.id
        GROUP BY c.id, c.name
        ORDER BY COALESCE(SUM(p.amount), 0) DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard totals by client: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ct ClientTotals
		if err := rows.Scan(&ct.Client, &ct.Invoiced, &ct.Paid); err != nil {
			return nil, fmt.Errorf("%w: dashboard totals by client: %v", shared.ErrStorage, err)
		}
		report.ByClient = append(report.ByClient, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dashboard totals by client: %v", shared.ErrStorage, err)
	}
	return report, nil
}

func (r *Repository) Monthly(ctx context.Context) ([]MonthlyRevenue, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT to_char(issue_date, 'YYYY-MM') AS month, SUM(total_ttc)
        FROM invoices
        WHERE archived_at IS NULL
        GROUP BY month
        ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard monthly: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	out := []MonthlyRevenue{}
	for rows.Next() {
		var m MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue); err != nil {
			return nil, fmt.Errorf("%w: dashboard monthly: %v", shared.ErrStorage, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dashboard monthly: %v", shared.ErrStorage, err)
	}
	return out, nil
}

func (r *Repository) StatusBreakdown(ctx context.Context) ([]StatusBreakdown, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT status, COUNT(*), SUM(total_ttc)
        FROM invoices
        WHERE archived_at IS NULL
        GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard status: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	out := []StatusBreakdown{}
	for rows.Next() {
		var s StatusBreakdown
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("%w: dashboard status: %v", shared.ErrStorage, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dashboard status: %v", shared.ErrStorage, err)
	}
	return out, nil
}

func (r *Repository) TopClients(ctx context.Context, limit int) ([]TopClient, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
        SELECT c.name, COALESCE(SUM(p.amount), 0) AS paid
        FROM clients c
        LEFT JOIN invoices i ON i.client_id = c.id AND i.archived_at IS NULL
        LEFT JOIN payments p ON p.invoice_id = i.id
        GROUP BY c.id, c.name
        ORDER BY paid DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard top clients: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	out := []TopClient{}
	for rows.Next() {
		var tc TopClient
		if err := rows.Scan(&tc.Client, &tc.Paid); err != nil {
			return nil, fmt.Errorf("%w: dashboard top clients: %v", shared.ErrStorage, err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dashboard top clients: %v", shared.ErrStorage, err)
	}
	return out, nil
}
