package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ringmotos/ringpos/internal/auth"
	"github.com/ringmotos/ringpos/internal/cashdrawer"
	"github.com/ringmotos/ringpos/internal/clients"
	"github.com/ringmotos/ringpos/internal/ledger"
	"github.com/ringmotos/ringpos/internal/observability"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
	"github.com/ringmotos/ringpos/internal/pos"
	"github.com/ringmotos/ringpos/internal/quotes"
	"github.com/ringmotos/ringpos/internal/reports"
	"github.com/ringmotos/ringpos/internal/shared"
	"github.com/ringmotos/ringpos/jobs"
)

// ReadinessCheck probes one dependency for /readyz.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler    *auth.Handler
	POSHandler     *pos.Handler
	CashHandler    *cashdrawer.Handler
	ClientsHandler *clients.Handler
	LedgerHandler  *ledger.Handler
	ReportsHandler *reports.Handler
	QuotesHandler  *quotes.Handler
	JobHandler     *jobs.Handler

	Readiness map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with ringpos defaults.
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
	r.Get("/readyz", readiness(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken)
		r.Route("/pos", params.POSHandler.MountRoutes)
		r.Route("/cash", params.CashHandler.MountRoutes)
		r.Route("/clients", func(r chi.Router) {
			params.ClientsHandler.MountRoutes(r)
			r.Route("/{id}/ledger", params.LedgerHandler.MountRoutes)
		})
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		r.Route("/quotes", params.QuotesHandler.MountRoutes)
	})

	return r
}

func readiness(logger *slog.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		httpx.JSON(w, status, out)
	}
}
