package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/shared"
)

// Notifier is poked after every successful ledger write so derived read
// models (the dashboard cache) can drop stale data.
type Notifier interface {
	LedgerChanged(ctx context.Context)
}

// Service is the ledger facade. Every operation authorizes the caller scope
// against the capability table, executes as one atomic unit through the
// repository, and emits a best-effort audit event after success.
type Service struct {
	repo     RepositoryPort
	emitter  audit.Emitter
	notifier Notifier
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, emitter audit.Emitter, notifier Notifier) *Service {
	if emitter == nil {
		emitter = audit.NopEmitter{}
	}
	return &Service{repo: repo, emitter: emitter, notifier: notifier}
}

// ListInvoices returns non-archived invoices visible to the caller. Client
// role callers are restricted to their own client record; when no client
// matches the caller's email the visible set is empty, not an error.
func (s *Service) ListInvoices(ctx context.Context, scope shared.Scope, filter ListFilter) ([]InvoiceSummary, error) {
	if err := scope.Authorize(shared.CapInvoiceRead); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Validationf("unknown status %q", filter.Status)
	}
	if !scope.Role.IsStaff() {
		ownID, err := s.repo.ClientIDForEmail(ctx, scope.Email)
		if err != nil {
			return nil, err
		}
		if ownID == 0 {
			return []InvoiceSummary{}, nil
		}
		filter.ClientID = ownID
	}
	return s.repo.ListInvoices(ctx, filter)
}

// GetInvoice returns the full invoice detail. Archived invoices remain
// fetchable by id for history. Client role callers only reach invoices of
// their own client record.
func (s *Service) GetInvoice(ctx context.Context, scope shared.Scope, id int64) (*InvoiceDetail, error) {
	if err := scope.Authorize(shared.CapInvoiceRead); err != nil {
		return nil, err
	}
	detail, err := s.repo.GetInvoiceDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, scope, detail.ClientID); err != nil {
		return nil, err
	}
	return detail, nil
}

// CreateInvoice validates input, allocates the next number, computes totals,
// and persists invoice plus lines atomically. Initial status is unpaid.
func (s *Service) CreateInvoice(ctx context.Context, scope shared.Scope, input CreateInvoiceInput) (*Invoice, error) {
	if err := scope.Authorize(shared.CapInvoiceCreate); err != nil {
		return nil, err
	}
	totalHT, totalTTC, lines, err := s.prepare(ctx, input.ClientID, input.IssueDate, input.TaxRate, input.Lines)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.CreateInvoice(ctx, input, totalHT, totalTTC, lines)
	if err != nil {
		return nil, err
	}

	s.changed(ctx)
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "create",
		Entity:   "invoice",
		EntityID: inv.ID,
		Details:  map[string]any{"number": inv.Number},
		At:       time.Now(),
	})
	return inv, nil
}

// UpdateInvoice replaces the full line set of a non-archived invoice,
// recomputes totals, and re-derives status against preserved payments.
func (s *Service) UpdateInvoice(ctx context.Context, scope shared.Scope, id int64, input UpdateInvoiceInput) (*Invoice, error) {
	if err := scope.Authorize(shared.CapInvoiceUpdate); err != nil {
		return nil, err
	}
	totalHT, totalTTC, lines, err := s.prepare(ctx, input.ClientID, input.IssueDate, input.TaxRate, input.Lines)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.UpdateInvoice(ctx, id, input, totalHT, totalTTC, lines)
	if err != nil {
		return nil, err
	}

	s.changed(ctx)
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "update",
		Entity:   "invoice",
		EntityID: id,
		At:       time.Now(),
	})
	return inv, nil
}

// ArchiveInvoice soft-deletes the invoice, keeping lines and payments.
func (s *Service) ArchiveInvoice(ctx context.Context, scope shared.Scope, id int64) error {
	if err := scope.Authorize(shared.CapInvoiceArchive); err != nil {
		return err
	}
	if err := s.repo.ArchiveInvoice(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "archive",
		Entity:   "invoice",
		EntityID: id,
		At:       time.Now(),
	})
	return nil
}

// AddPayment records a payment against a non-archived invoice and returns
// the payment alongside the freshly derived status so callers never infer it.
func (s *Service) AddPayment(ctx context.Context, scope shared.Scope, input AddPaymentInput) (*Payment, Status, error) {
	if err := scope.Authorize(shared.CapPaymentWrite); err != nil {
		return nil, "", err
	}
	if input.InvoiceID <= 0 {
		return nil, "", shared.Validationf("invoice_id required")
	}
	if input.Amount <= 0 {
		return nil, "", shared.Validationf("amount must be > 0")
	}
	if strings.TrimSpace(input.Method) == "" {
		return nil, "", shared.Validationf("method required")
	}
	if input.PaidAt.IsZero() {
		return nil, "", shared.Validationf("paid_at required")
	}
	input.Amount = RoundMoney(input.Amount)

	payment, status, err := s.repo.AddPayment(ctx, input)
	if err != nil {
		return nil, "", err
	}

	s.changed(ctx)
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "create",
		Entity:   "payment",
		EntityID: payment.ID,
		Details:  map[string]any{"invoice_id": input.InvoiceID},
		At:       time.Now(),
	})
	return payment, status, nil
}

// RemovePayment deletes a payment and returns the owning invoice's re-derived
// status.
func (s *Service) RemovePayment(ctx context.Context, scope shared.Scope, id int64) (Status, error) {
	if err := scope.Authorize(shared.CapPaymentWrite); err != nil {
		return "", err
	}
	invoiceID, status, err := s.repo.RemovePayment(ctx, id)
	if err != nil {
		return "", err
	}

	s.changed(ctx)
	s.emitter.Emit(ctx, audit.Event{
		ActorID:  scope.UserID,
		Action:   "delete",
		Entity:   "payment",
		EntityID: id,
		Details:  map[string]any{"invoice_id": invoiceID},
		At:       time.Now(),
	})
	return status, nil
}

// ListPayments returns the payment history of an invoice the caller may read.
func (s *Service) ListPayments(ctx context.Context, scope shared.Scope, invoiceID int64) ([]Payment, error) {
	if err := scope.Authorize(shared.CapInvoiceRead); err != nil {
		return nil, err
	}
	detail, err := s.repo.GetInvoiceDetail(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, scope, detail.ClientID); err != nil {
		return nil, err
	}
	return detail.Payments, nil
}

// prepare validates the shared create/update input and precomputes totals
// and denormalized lines.
func (s *Service) prepare(ctx context.Context, clientID int64, issueDate time.Time, taxRate float64, inputs []LineInput) (float64, float64, []Line, error) {
	if clientID <= 0 {
		return 0, 0, nil, shared.Validationf("client_id required")
	}
	if issueDate.IsZero() {
		return 0, 0, nil, shared.Validationf("issue_date required")
	}
	exists, err := s.repo.ClientExists(ctx, clientID)
	if err != nil {
		return 0, 0, nil, err
	}
	if !exists {
		return 0, 0, nil, shared.Validationf("client %d does not exist", clientID)
	}

	totalHT, totalTTC, err := ComputeTotals(inputs, taxRate)
	if err != nil {
		return 0, 0, nil, err
	}
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, Line{
			Description: in.Description,
			UnitPrice:   in.UnitPrice,
			Quantity:    in.Quantity,
			Total:       LineTotal(in.UnitPrice, in.Quantity),
		})
	}
	return totalHT, totalTTC, lines, nil
}

// checkOwnership enforces the client-role visibility rule: the invoice must
// belong to the client record matching the caller's email.
func (s *Service) checkOwnership(ctx context.Context, scope shared.Scope, invoiceClientID int64) error {
	if scope.Role.IsStaff() {
		return nil
	}
	ownID, err := s.repo.ClientIDForEmail(ctx, scope.Email)
	if err != nil {
		return err
	}
	if ownID == 0 || ownID != invoiceClientID {
		return fmt.Errorf("%w: invoice belongs to another client", shared.ErrForbidden)
	}
	return nil
}

func (s *Service) changed(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.LedgerChanged(ctx)
	}
}
