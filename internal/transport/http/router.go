package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"scanbo/internal/platform/metrics"
	"scanbo/pkg/platform/httputil"
	"scanbo/pkg/platform/middleware/metadata"
	"scanbo/pkg/platform/middleware/request"
	"scanbo/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a module's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries what the router needs beyond the module handlers.
type Config struct {
	Logger         *slog.Logger
	Registry       *prometheus.Registry
	HealthChecks   map[string]HealthCheck
	RequestTimeout time.Duration
}

// NewRouter applies the shared middleware chain, then exposes /healthz,
// /metrics and every module's routes.
func NewRouter(cfg Config, modules ...RouteRegistrar) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Timeout(timeout))
	if cfg.Registry != nil {
		r.Use(metrics.NewHTTPMetrics(cfg.Registry).Middleware)
		r.Handle("/metrics", metrics.Handler(cfg.Registry))
	}

	r.Get("/healthz", healthHandler(cfg.Logger, cfg.HealthChecks))
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
	}
}
