package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// Handler serves the dashboard aggregates.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/totals", h.totals)
	r.Get("/monthly", h.monthly)
	r.Get("/status", h.status)
	r.Get("/top-clients", h.topClients)
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	report, err := h.service.Totals(r.Context(), scope)
	if err != nil {
		h.logger.Error("dashboard totals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	rows, err := h.service.Monthly(r.Context(), scope)
	if err != nil {
		h.logger.Error("dashboard monthly", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []MonthlyRevenue{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	rows, err := h.service.StatusBreakdown(r.Context(), scope)
	if err != nil {
		h.logger.Error("dashboard status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []StatusBreakdown{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) topClients(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	rows, err := h.service.TopClients(r.Context(), scope)
	if err != nil {
		h.logger.Error("dashboard top clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []TopClient{}
	}
	httpx.JSON(w, http.StatusOK, rows)
}
