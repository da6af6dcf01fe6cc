package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/facturo/facturo/internal/platform/httpx"
	"github.com/facturo/facturo/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers auth routes. Credential endpoints carry a tighter
// rate limit than the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.login)
		r.Post("/register", h.register)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.service.RequireAuth)
		r.Get("/me", h.me)
	})
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  shared.Role `json:"role"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.RespondError(w, shared.Validationf("email and password required"))
		return
	}
	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponse{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Validationf("%v", err))
		return
	}
	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("register user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": user.ID})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	scope := shared.ScopeFromContext(r.Context())
	user, err := h.service.Me(r.Context(), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": userResponse{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}
