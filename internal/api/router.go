// Package api provides the SmartCommute status API.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/api/handler"
	"github.com/smartcommute/smartcommute/internal/api/middleware"
	"github.com/smartcommute/smartcommute/internal/commute"
	"github.com/smartcommute/smartcommute/internal/provider/resilience"
)

// DefaultServiceName names the API in traces.
const DefaultServiceName = "smartcommute-api"

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger

	// Metrics is optional.
	Metrics *middleware.Metrics

	Route    *commute.Route
	Monitor  handler.Monitor
	Registry *resilience.Registry

	// Now returns the time in the route's zone. Defaults to time.Now.
	Now func() time.Time

	// Zero values fall back to the middleware defaults.
	ReadRateLimit  middleware.RateLimitConfig
	CheckRateLimit middleware.RateLimitConfig
}

// NewRouter creates the chi router with every API route mounted.
func NewRouter(cfg RouterConfig) *chi.Mux {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	readLimit := cfg.ReadRateLimit
	if readLimit.RequestLimit == 0 {
		readLimit = middleware.ReadRateLimit
	}
	checkLimit := cfg.CheckRateLimit
	if checkLimit.RequestLimit == 0 {
		checkLimit = middleware.CheckRateLimit
	}

	r := chi.NewRouter()

	// Order matters: the request ID must exist before tracing and logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Monitor)
	commuteHandler := handler.NewCommuteHandler(cfg.Route, cfg.Monitor, cfg.Now)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ops/health", opsHandler.HealthCheck)

		r.Route("/commute", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(readLimit))
				r.Get("/status", commuteHandler.Status)
				r.Get("/stops", commuteHandler.ListStops)
				r.Post("/stops", commuteHandler.AddStop)
				r.Delete("/stops", commuteHandler.RemoveStops)
			})

			// Every forced check spends a directions request.
			r.With(middleware.RateLimitByIP(checkLimit)).Post("/check", commuteHandler.Check)
		})
	})

	return r
}
