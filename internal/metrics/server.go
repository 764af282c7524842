package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter serves /metrics from gatherer, /healthz for liveness and, when
// health is not nil, /health for backup health.
func NewRouter(gatherer prometheus.Gatherer, health http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if health != nil {
		r.Method(http.MethodGet, "/health", health)
	}
	return r
}

// NewServer creates an HTTP server for NewRouter.
func NewServer(addr string, gatherer prometheus.Gatherer, health http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(gatherer, health),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
