// Package httpserver builds the pipeline's operational surface: a /healthz
// liveness probe and a /metrics Prometheus exposition endpoint. The admin
// REST API (rule CRUD, RBAC) is an out-of-scope external collaborator; this
// is only the ambient operational surface a deployed process needs.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a dependency the pipeline relies on
// (state store, event store, event bus) is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// New builds the operational HTTP server. handler is intentionally just a
// liveness+metrics mux; it carries no rule or alert endpoints.
func New(addr string) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
