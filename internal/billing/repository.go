package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/shared"
)

// RepositoryPort defines data access for the billing ledger. Every method is
// one atomic unit: multi-row mutations either fully apply or roll back.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput, totalHT, totalTTC float64, lines []Line) (*Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, input UpdateInvoiceInput, totalHT, totalTTC float64, lines []Line) (*Invoice, error)
	ArchiveInvoice(ctx context.Context, id int64) error
	GetInvoiceDetail(ctx context.Context, id int64) (*InvoiceDetail, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]InvoiceSummary, error)
	ClientIDForEmail(ctx context.Context, email string) (int64, error)
	ClientExists(ctx context.Context, id int64) (bool, error)
	AddPayment(ctx context.Context, input AddPaymentInput) (*Payment, Status, error)
	RemovePayment(ctx context.Context, id int64) (int64, Status, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
}

// Repository provides PostgreSQL backed persistence for the billing ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInvoice allocates the next invoice number and persists the invoice
// with its lines as one transaction. Allocation is serialized with an
// advisory transaction lock so concurrent creates can never observe the same
// maximum.
func (r *Repository) CreateInvoice(ctx context.Context, input CreateInvoiceInput, totalHT, totalTTC float64, lines []Line) (*Invoice, error) {
	var inv Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := db.AcquireInvoiceNumberLock(ctx, tx); err != nil {
			return err
		}

		var number int64
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM invoices`).Scan(&number); err != nil {
			return fmt.Errorf("allocate number: %w", err)
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO invoices (number, client_id, issue_date, due_date, tax_rate, total_ht, total_ttc, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 'unpaid')
			 RETURNING id, created_at, updated_at`,
			number, input.ClientID, input.IssueDate, input.DueDate, input.TaxRate, totalHT, totalTTC,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		if err := insertLines(ctx, tx, inv.ID, lines); err != nil {
			return err
		}

		inv.Number = number
		inv.ClientID = input.ClientID
		inv.IssueDate = input.IssueDate
		inv.DueDate = input.DueDate
		inv.TaxRate = input.TaxRate
		inv.TotalHT = totalHT
		inv.TotalTTC = totalTTC
		inv.Status = StatusUnpaid
		return nil
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &inv, nil
}

// UpdateInvoice replaces the full line set, recomputes totals, and re-derives
// status against preserved payments, all in one transaction. Archived or
// absent invoices yield ErrNotFound.
func (r *Repository) UpdateInvoice(ctx context.Context, id int64, input UpdateInvoiceInput, totalHT, totalTTC float64, lines []Line) (*Invoice, error) {
	var inv Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM invoices WHERE id = $1 AND archived_at IS NULL FOR UPDATE`, id,
		).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("lock invoice: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := insertLines(ctx, tx, id, lines); err != nil {
			return err
		}

		paid, err := paidToDate(ctx, tx, id)
		if err != nil {
			return err
		}
		status := DeriveStatus(totalTTC, paid)

		err = tx.QueryRow(ctx,
			`UPDATE invoices
			 SET client_id = $1, issue_date = $2, due_date = $3, tax_rate = $4,
			     total_ht = $5, total_ttc = $6, status = $7, updated_at = NOW()
			 WHERE id = $8
			 RETURNING number, created_at, updated_at`,
			input.ClientID, input.IssueDate, input.DueDate, input.TaxRate,
			totalHT, totalTTC, status, id,
		).Scan(&inv.Number, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		inv.ID = id
		inv.ClientID = input.ClientID
		inv.IssueDate = input.IssueDate
		inv.DueDate = input.DueDate
		inv.TaxRate = input.TaxRate
		inv.TotalHT = totalHT
		inv.TotalTTC = totalTTC
		inv.Status = status
		return nil
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &inv, nil
}

// ArchiveInvoice soft-deletes the invoice. Lines and payments are retained
// for history.
func (r *Repository) ArchiveInvoice(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET archived_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND archived_at IS NULL`, id)
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

// GetInvoiceDetail fetches an invoice with client, lines, payments, and the
// derived balance. Archived invoices remain fetchable for history.
func (r *Repository) GetInvoiceDetail(ctx context.Context, id int64) (*InvoiceDetail, error) {
	var detail InvoiceDetail
	err := r.pool.QueryRow(ctx,
		`SELECT i.id, i.number, i.client_id, i.issue_date, i.due_date, i.tax_rate,
		        i.total_ht, i.total_ttc, i.status, i.archived_at, i.created_at, i.updated_at,
		        c.id, c.name, c.email, c.address
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 WHERE i.id = $1`, id,
	).Scan(
		&detail.ID, &detail.Number, &detail.ClientID, &detail.IssueDate, &detail.DueDate,
		&detail.TaxRate, &detail.TotalHT, &detail.TotalTTC, &detail.Status,
		&detail.ArchivedAt, &detail.CreatedAt, &detail.UpdatedAt,
		&detail.Client.ID, &detail.Client.Name, &detail.Client.Email, &detail.Client.Address,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapStorageErr(err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, description, unit_price, quantity, total
		 FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description, &line.UnitPrice, &line.Quantity, &line.Total); err != nil {
			return nil, mapStorageErr(err)
		}
		detail.Lines = append(detail.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}

	payments, err := r.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Payments = payments
	for _, p := range payments {
		detail.PaidToDate += p.Amount
	}
	detail.PaidToDate = RoundMoney(detail.PaidToDate)
	detail.AmountDue = AmountDue(detail.TotalTTC, detail.PaidToDate)
	return &detail, nil
}

// ListInvoices returns non-archived invoices most-recent-id-first.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]InvoiceSummary, error) {
	query := strings.Builder{}
	query.WriteString(
		`SELECT i.id, i.number, i.client_id, c.name, i.issue_date, i.tax_rate,
		        i.total_ht, i.total_ttc, i.status
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 WHERE i.archived_at IS NULL`)
	args := []any{}
	if filter.Text != "" {
		args = append(args, "%"+filter.Text+"%")
		fmt.Fprintf(&query, " AND (i.number::text ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&query, " AND i.status = $%d", len(args))
	}
	if filter.ClientID > 0 {
		args = append(args, filter.ClientID)
		fmt.Fprintf(&query, " AND i.client_id = $%d", len(args))
	}
	query.WriteString(" ORDER BY i.id DESC")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var out []InvoiceSummary
	for rows.Next() {
		var s InvoiceSummary
		if err := rows.Scan(&s.ID, &s.Number, &s.ClientID, &s.Client, &s.IssueDate, &s.TaxRate, &s.TotalHT, &s.TotalTTC, &s.Status); err != nil {
			return nil, mapStorageErr(err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClientIDForEmail resolves the identity-linking key for client-role callers.
// Returns 0 when no client record matches.
func (r *Repository) ClientIDForEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM clients WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapStorageErr(err)
	}
	return id, nil
}

// ClientExists reports whether a client record exists.
func (r *Repository) ClientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, mapStorageErr(err)
	}
	return exists, nil
}

// AddPayment appends a payment and re-derives the owning invoice's status in
// the same transaction. Absent or archived invoices yield ErrNotFound.
func (r *Repository) AddPayment(ctx context.Context, input AddPaymentInput) (*Payment, Status, error) {
	var payment Payment
	var status Status
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var totalTTC float64
		err := tx.QueryRow(ctx,
			`SELECT total_ttc FROM invoices WHERE id = $1 AND archived_at IS NULL FOR UPDATE`,
			input.InvoiceID,
		).Scan(&totalTTC)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, input.InvoiceID)
		}
		if err != nil {
			return fmt.Errorf("lock invoice: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO payments (invoice_id, amount, method, paid_at, note)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			input.InvoiceID, input.Amount, input.Method, input.PaidAt, input.Note,
		).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		status, err = refreshStatus(ctx, tx, input.InvoiceID, totalTTC)
		if err != nil {
			return err
		}

		payment.InvoiceID = input.InvoiceID
		payment.Amount = input.Amount
		payment.Method = input.Method
		payment.PaidAt = input.PaidAt
		payment.Note = input.Note
		return nil
	})
	if err != nil {
		return nil, "", mapStorageErr(err)
	}
	return &payment, status, nil
}

// RemovePayment deletes a payment and re-derives the owning invoice's status
// in the same transaction. Returns the owning invoice id and the new status.
func (r *Repository) RemovePayment(ctx context.Context, id int64) (int64, Status, error) {
	var invoiceID int64
	var status Status
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT invoice_id FROM payments WHERE id = $1`, id).Scan(&invoiceID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: payment %d", shared.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}

		var totalTTC float64
		err = tx.QueryRow(ctx, `SELECT total_ttc FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID).Scan(&totalTTC)
		if err != nil {
			return fmt.Errorf("lock invoice: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		status, err = refreshStatus(ctx, tx, invoiceID, totalTTC)
		return err
	})
	if err != nil {
		return 0, "", mapStorageErr(err)
	}
	return invoiceID, status, nil
}

// ListPayments returns payments for an invoice, most recent paid-at first.
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, amount, method, paid_at, note, created_at
		 FROM payments WHERE invoice_id = $1 ORDER BY paid_at DESC, id DESC`, invoiceID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaidAt, &p.Note, &p.CreatedAt); err != nil {
			return nil, mapStorageErr(err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []Line) error {
	for _, line := range lines {
		_, err := tx.Exec(ctx,
			`INSERT INTO invoice_lines (invoice_id, description, unit_price, quantity, total)
			 VALUES ($1, $2, $3, $4, $5)`,
			invoiceID, line.Description, line.UnitPrice, line.Quantity, line.Total)
		if err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
	}
	return nil
}

func paidToDate(ctx context.Context, tx pgx.Tx, invoiceID int64) (float64, error) {
	var paid float64
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID,
	).Scan(&paid)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return paid, nil
}

func refreshStatus(ctx context.Context, tx pgx.Tx, invoiceID int64, totalTTC float64) (Status, error) {
	paid, err := paidToDate(ctx, tx, invoiceID)
	if err != nil {
		return "", err
	}
	status := DeriveStatus(totalTTC, paid)
	if _, err := tx.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, invoiceID); err != nil {
		return "", fmt.Errorf("persist status: %w", err)
	}
	return status, nil
}

// mapStorageErr keeps taxonomy errors intact and folds everything else into
// ErrStorage. Unique violations surface as Conflict.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: %v", shared.ErrStorage, err)
}
