package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/auth"
	"github.com/facturo/facturo/internal/billing"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/dashboard"
	"github.com/facturo/facturo/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	BillingHandler   *billing.Handler
	ClientsHandler   *clients.Handler
	DashboardHandler *dashboard.Handler
	AuditHandler     *audit.Handler
	UsersHandler     *users.Handler
}

// NewRouter constructs the chi.Router for the ledger API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.RequireAuth)
		r.Route("/invoices", params.BillingHandler.MountInvoiceRoutes)
		r.Route("/payments", params.BillingHandler.MountPaymentRoutes)
		r.Route("/clients", params.ClientsHandler.MountRoutes)
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		r.Route("/users", params.UsersHandler.MountRoutes)
	})

	return r
}
