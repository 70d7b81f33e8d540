// Package httpapi assembles the public HTTP surface: verification endpoints,
// health, and Prometheus metrics. Transport concerns only; business logic
// stays in the domain services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veriflow/internal/verification/handler"
	"veriflow/internal/verification/store"
	"veriflow/pkg/httputil"
	"veriflow/pkg/requestcontext"
)

// HealthCheck reports whether one backing component is reachable.
type HealthCheck func(ctx context.Context) error

// StatsFunc supplies case counts for the health endpoint. May be nil.
type StatsFunc func(ctx context.Context) (store.Stats, error)

const healthCheckTimeout = 2 * time.Second

// NewRouter wires all public endpoints.
func NewRouter(verification *handler.Handler, checks map[string]HealthCheck, stats StatsFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)

	verification.Register(r)

	r.Get("/healthz", healthHandler(checks, stats))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestIDMiddleware tags every request with an ID for log correlation,
// honoring a caller-supplied X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), requestID)))
	})
}

// healthHandler probes each backing component with a short timeout. Any
// failure degrades the whole endpoint to 503 so orchestrators stop routing.
func healthHandler(checks map[string]HealthCheck, stats StatsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(components) > 0 {
			body["components"] = components
		}
		if stats != nil {
			if s, err := stats(ctx); err == nil {
				body["cases"] = map[string]int{
					"total":        s.Total,
					"approved":     s.Approved,
					"needs_review": s.NeedsReview,
					"rejected":     s.Rejected,
				}
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
