package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/backoffice/internal/auth"
	"github.com/odyssey-erp/backoffice/internal/banks"
	"github.com/odyssey-erp/backoffice/internal/documents"
	"github.com/odyssey-erp/backoffice/internal/inventory"
	"github.com/odyssey-erp/backoffice/internal/menu"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/procurement"
	"github.com/odyssey-erp/backoffice/internal/reports"
	"github.com/odyssey-erp/backoffice/internal/sales"
	"github.com/odyssey-erp/backoffice/jobs"
)

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
// Nil handlers leave their routes unmounted.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Tokens             *auth.TokenIssuer
	AuthHandler        *auth.Handler
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	MenuHandler        *menu.Handler
	BanksHandler       *banks.Handler
	SalesHandler       *sales.Handler
	ReportsHandler     *reports.Handler
	DocumentsHandler   *documents.Handler
	JobHandler         *jobs.Handler
	HealthChecks       []HealthCheck
	Metrics            *observability.Metrics
}

// Guard returns the middleware protecting non-auth API routes.
func (p RouterParams) Guard() func(http.Handler) http.Handler {
	if p.Config != nil && p.Config.AuthRequired {
		return auth.RequireActor
	}
	return auth.Passthrough
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(params.Tokens, params.Logger))
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Group(func(r chi.Router) {
			r.Use(params.Guard())
			if params.ProcurementHandler != nil {
				r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)
			}
			r.Route("/menu", func(r chi.Router) {
				if params.InventoryHandler != nil {
					r.Route("/bom", params.InventoryHandler.MountRoutes)
				}
				if params.MenuHandler != nil {
					params.MenuHandler.MountRoutes(r)
				}
			})
			if params.BanksHandler != nil {
				r.Route("/banks", params.BanksHandler.MountRoutes)
			}
			if params.SalesHandler != nil {
				r.Route("/transactions", params.SalesHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
			if params.DocumentsHandler != nil {
				r.Route("/documents", params.DocumentsHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func healthHandler(logger *slog.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		result := map[string]string{}
		for _, c := range checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				logger.Warn("health check failed", slog.String("dependency", c.Name), slog.Any("error", err))
				result[c.Name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			result[c.Name] = "ok"
		}
		body := map[string]any{"status": "ok", "checks": result}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httpx.JSON(w, status, body)
	}
}
