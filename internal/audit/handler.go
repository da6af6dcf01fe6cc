package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// Handler exposes the audit log read endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRecent)
}

func (h *Handler) listRecent(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	entries, err := h.service.Recent(r.Context(), scope)
	if err != nil {
		h.logger.Error("list audit log", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}
