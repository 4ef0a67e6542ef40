package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/health"
	"github.com/alexcomrie/Jeffery-Flowers-Supplies/pkg/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName       string
	CORS              middleware.CORSConfig
	RateLimitRPS      float64
	RateLimitBurst    int
	RequestTimeout    time.Duration
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with the hub endpoint, health checks,
// metrics and pprof registered.
func NewRouter(hub *HubHandler, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())

	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	// Hub endpoint, also served at /exec for clients of the old deployment.
	api := func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(chimw.Compress(5))

		r.Get("/", hub.Read)
		r.Post("/", hub.Write)
	}
	r.Route("/api/v1/hub", api)
	r.Route("/exec", api)

	return r
}
