package billing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// DocumentRenderer renders an invoice into a downloadable document. The
// ledger supplies invoice, lines, and client only.
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, detail *InvoiceDetail) ([]byte, error)
}

// Handler manages billing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	renderer DocumentRenderer
	validate *validator.Validate
}

// NewHandler builds Handler instance. renderer may be nil, in which case the
// document route responds 503.
func NewHandler(logger *slog.Logger, service *Service, renderer DocumentRenderer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		renderer: renderer,
		validate: validator.New(),
	}
}

// MountInvoiceRoutes registers invoice routes.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Get("/", h.listInvoices)
	r.Post("/", h.createInvoice)
	r.Get("/{id}", h.getInvoice)
	r.Put("/{id}", h.updateInvoice)
	r.Delete("/{id}", h.archiveInvoice)
	r.Get("/{id}/pdf", h.renderInvoice)
}

// MountPaymentRoutes registers payment routes.
func (h *Handler) MountPaymentRoutes(r chi.Router) {
	r.Get("/by-invoice/{invoiceID}", h.listPayments)
	r.Post("/", h.addPayment)
	r.Delete("/{id}", h.removePayment)
}

type lineRequest struct {
	Description string  `json:"description" validate:"required"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
}

type invoiceRequest struct {
	ClientID  int64         `json:"client_id" validate:"required,gt=0"`
	IssueDate string        `json:"issue_date" validate:"required"`
	DueDate   string        `json:"due_date,omitempty"`
	TaxRate   float64       `json:"tax_rate" validate:"gte=0"`
	Items     []lineRequest `json:"items" validate:"required,min=1,dive"`
}

type paymentRequest struct {
	InvoiceID int64   `json:"invoice_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required"`
	PaidAt    string  `json:"paid_at" validate:"required"`
	Note      *string `json:"note,omitempty"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	filter := ListFilter{
		Text:   r.URL.Query().Get("q"),
		Status: Status(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("client_id"); raw != "" && scope.Role.IsStaff() {
		filter.ClientID, _ = strconv.ParseInt(raw, 10, 64)
	}

	invoices, err := h.service.ListInvoices(r.Context(), scope, filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []InvoiceSummary{}
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	detail, err := h.service.GetInvoice(r.Context(), scope, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeInvoice(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	inv, err := h.service.CreateInvoice(r.Context(), scope, *input)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": inv.ID, "number": inv.Number})
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := h.decodeInvoice(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	inv, err := h.service.UpdateInvoice(r.Context(), scope, id, UpdateInvoiceInput(*input))
	if err != nil {
		h.logger.Error("update invoice", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "status": inv.Status})
}

func (h *Handler) archiveInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	if err := h.service.ArchiveInvoice(r.Context(), scope, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) renderInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.renderer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Rendering Unavailable", "document renderer is not configured")
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	detail, err := h.service.GetInvoice(r.Context(), scope, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.renderer.RenderInvoice(r.Context(), detail)
	if err != nil {
		h.logger.Error("render invoice document", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusBadGateway, "Rendering Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("invoice-%d.pdf", detail.Number)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := idParam(r, "invoiceID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	payments, err := h.service.ListPayments(r.Context(), scope, invoiceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("%v", err))
		return
	}
	paidAt, err := parseDate(req.PaidAt, "paid_at")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	scope := shared.ScopeFromContext(r.Context())
	payment, status, err := h.service.AddPayment(r.Context(), scope, AddPaymentInput{
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		PaidAt:    paidAt,
		Note:      req.Note,
	})
	if err != nil {
		h.logger.Error("add payment", slog.Any("error", err), slog.Int64("invoice_id", req.InvoiceID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": payment.ID, "status": status})
}

func (h *Handler) removePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	status, err := h.service.RemovePayment(r.Context(), scope, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "status": status})
}

func (h *Handler) decodeInvoice(r *http.Request) (*CreateInvoiceInput, error) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, shared.Validationf("invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, shared.Validationf("%v", err)
	}
	issueDate, err := parseDate(req.IssueDate, "issue_date")
	if err != nil {
		return nil, err
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		d, err := parseDate(req.DueDate, "due_date")
		if err != nil {
			return nil, err
		}
		dueDate = &d
	}
	lines := make([]LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, LineInput{
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return &CreateInvoiceInput{
		ClientID:  req.ClientID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		TaxRate:   req.TaxRate,
		Lines:     lines,
	}, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid %s", name)
	}
	return id, nil
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.Validationf("%s must be an ISO date (YYYY-MM-DD)", field)
	}
	return t, nil
}
