package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig wires the optional parts of the router.
type RouterConfig struct {
	Logger *slog.Logger
	// Registry receives HTTP metrics and is served on /metrics. Nil disables both.
	Registry *prometheus.Registry
	// Verifier enables bearer-token authentication on POST /users when set.
	Verifier     TokenVerifier
	RequiredRole string
}

// NewRouter returns the service's HTTP handler.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var createUser http.Handler = http.HandlerFunc(h.CreateUser)
	if cfg.Verifier != nil {
		createUser = requireRole(cfg.Verifier, cfg.RequiredRole)(createUser)
	}
	mux.Handle("POST /users", createUser)

	var handler http.Handler = mux
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
		handler = newHTTPMetrics(cfg.Registry).wrap(handler)
	}
	return requestLogger(logger)(recoveryHandler(logger)(handler))
}
