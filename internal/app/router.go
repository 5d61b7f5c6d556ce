package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aspire-solar/billdesk/internal/attendance"
	"github.com/aspire-solar/billdesk/internal/auth"
	"github.com/aspire-solar/billdesk/internal/challans"
	"github.com/aspire-solar/billdesk/internal/clients"
	"github.com/aspire-solar/billdesk/internal/employees"
	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/ledger"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/jobs"
	"github.com/aspire-solar/billdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	SettingsHandler   *settings.Handler
	ClientsHandler    *clients.Handler
	InvoiceHandler    *invoice.Handler
	EmployeesHandler  *employees.Handler
	LedgerHandler     *ledger.Handler
	AttendanceHandler *attendance.Handler
	ChallansHandler   *challans.Handler
	ReportHandler     *report.Handler
	JobHandler        *jobs.Handler

	// Files serves stored uploads below Config.StoragePublicURL. Optional.
	Files http.Handler
}

// NewRouter constructs the chi.Router with billdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/settings", params.SettingsHandler.MountRoutes)
	r.Route("/clients", params.ClientsHandler.MountRoutes)
	r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	r.Route("/employees", func(r chi.Router) {
		params.EmployeesHandler.MountRoutes(r)
		r.Route("/{id}/payments", params.LedgerHandler.MountEmployeeRoutes)
		r.Route("/{id}/attendance", params.AttendanceHandler.MountRoutes)
	})
	r.Route("/payments", params.LedgerHandler.MountRoutes)
	r.Route("/profiles", params.EmployeesHandler.MountPublicRoutes)
	r.Route("/challans", params.ChallansHandler.MountRoutes)
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}
	r.Route("/jobs", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireRoles(shared.RoleAdmin))
		params.JobHandler.MountRoutes(r)
	})

	if params.Files != nil && params.Config != nil {
		prefix := "/" + strings.Trim(params.Config.StoragePublicURL, "/")
		r.With(params.RBACMiddleware.RequireAuthenticated()).
			Handle(prefix+"/*", http.StripPrefix(prefix, noDirectoryListing(params.Files)))
	}

	return r
}

// noDirectoryListing hides directory indexes from a file server.
func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
