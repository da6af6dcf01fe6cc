package clients

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// Handler manages client endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers client routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type clientRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	out, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []Client{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	out, err := h.service.Search(r.Context(), scope, r.URL.Query().Get("q"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []Client{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	client, err := h.service.Create(r.Context(), scope, *input)
	if err != nil {
		h.logger.Error("create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.Validationf("invalid id"))
		return
	}
	input, err := h.decode(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	client, err := h.service.Update(r.Context(), scope, id, *input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.Validationf("invalid id"))
		return
	}
	scope := shared.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) decode(r *http.Request) (*ClientInput, error) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return nil, shared.Validationf("invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, shared.Validationf("%v", err)
	}
	return &ClientInput{Name: req.Name, Email: req.Email, Address: req.Address}, nil
}
