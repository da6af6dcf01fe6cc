package billing

import (
	"time"
)

// Status enumerates derived invoice payment statuses.
type Status string

const (
	StatusUnpaid  Status = "unpaid"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// Invoice model. Number is the human-facing sequential identifier, distinct
// from ID and never reused. Status is materialized but always recomputed by
// the ledger, never patched incrementally.
type Invoice struct {
	ID         int64      `json:"id"`
	Number     int64      `json:"number"`
	ClientID   int64      `json:"client_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	TaxRate    float64    `json:"tax_rate"`
	TotalHT    float64    `json:"total_ht"`
	TotalTTC   float64    `json:"total_ttc"`
	Status     Status     `json:"status"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Archived reports whether the invoice has been soft deleted.
func (i Invoice) Archived() bool {
	return i.ArchivedAt != nil
}

// Line is a denormalized invoice line item. Lines are replaced wholesale on
// every invoice update.
type Line struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
	Total       float64 `json:"total"`
}

// Payment reduces the owning invoice's outstanding balance as a whole; it is
// never linked to a specific line item.
type Payment struct {
	ID        int64     `json:"id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	PaidAt    time.Time `json:"paid_at"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInfo is the slice of the client record the ledger exposes on an
// invoice detail.
type ClientInfo struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// InvoiceSummary is a list row including the joined client name.
type InvoiceSummary struct {
	ID        int64     `json:"id"`
	Number    int64     `json:"number"`
	ClientID  int64     `json:"client_id"`
	Client    string    `json:"client"`
	IssueDate time.Time `json:"issue_date"`
	TaxRate   float64   `json:"tax_rate"`
	TotalHT   float64   `json:"total_ht"`
	TotalTTC  float64   `json:"total_ttc"`
	Status    Status    `json:"status"`
}

// InvoiceDetail is the full read model for a single invoice.
type InvoiceDetail struct {
	Invoice
	Client     ClientInfo `json:"client"`
	Lines      []Line     `json:"items"`
	Payments   []Payment  `json:"payments"`
	PaidToDate float64    `json:"paid_to_date"`
	AmountDue  float64    `json:"amount_due"`
}

// LineInput is a candidate line item for create/update.
type LineInput struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
}

// CreateInvoiceInput for creating invoices.
type CreateInvoiceInput struct {
	ClientID  int64
	IssueDate time.Time
	DueDate   *time.Time
	TaxRate   float64
	Lines     []LineInput
}

// UpdateInvoiceInput replaces the full line set and may reassign the client.
type UpdateInvoiceInput struct {
	ClientID  int64
	IssueDate time.Time
	DueDate   *time.Time
	TaxRate   float64
	Lines     []LineInput
}

// AddPaymentInput for recording payments.
type AddPaymentInput struct {
	InvoiceID int64
	Amount    float64
	Method    string
	PaidAt    time.Time
	Note      *string
}

// ListFilter narrows invoice listings. Text matches the invoice number or the
// client name, case-insensitive substring.
type ListFilter struct {
	Text     string
	Status   Status
	ClientID int64
}
