package rest

import (
	"net/http"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/docs/swagger"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/infrastructure/observability"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest/handlers"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/interfaces/http/rest/middleware"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds the HTTP surface switches
type RouterConfig struct {
	RequestTimeout time.Duration
	EnableCORS     bool
	EnableMetrics  bool
	EnableTracing  bool

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only safe behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Router creates and configures the HTTP router
type Router struct {
	audio     *handlers.AudioHandler
	health    *handlers.HealthHandler
	validator middleware.TokenValidator
	limiter   auth.RateLimiter
	collector *observability.Collector
	errors    *apperrors.ErrorHandler
	logger    *zap.Logger
	config    RouterConfig
}

// NewRouter creates a new router instance. A nil validator leaves the API
// unauthenticated; a nil collector disables /metrics.
func NewRouter(
	audio *handlers.AudioHandler,
	health *handlers.HealthHandler,
	validator middleware.TokenValidator,
	limiter auth.RateLimiter,
	collector *observability.Collector,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
	config RouterConfig,
) *Router {
	return &Router{
		audio:     audio,
		health:    health,
		validator: validator,
		limiter:   limiter,
		collector: collector,
		errors:    errorHandler,
		logger:    logger,
		config:    config,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	if rt.config.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	if rt.config.EnableTracing {
		router.Use(observability.TracingMiddleware(observability.ServiceName))
	}
	if rt.config.EnableMetrics && rt.collector != nil {
		router.Use(observability.MetricsMiddleware(rt.collector))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", handlers.IdempotencyHeader},
			ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID", "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Probes and docs
	router.Get("/health", rt.health.Health)
	router.Get("/ready", rt.health.Ready)
	router.Get("/swagger/doc.json", rt.swaggerDoc)
	if rt.config.EnableMetrics && rt.collector != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.collector.GetRegistry(), promhttp.HandlerOpts{}))
	}

	router.Get("/dl/{name}", rt.audio.Download)

	router.Group(func(r chi.Router) {
		if rt.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.config.RequestTimeout))
		}
		r.Use(middleware.Authenticate(rt.validator, rt.errors))

		r.With(middleware.RateLimit(rt.limiter, rt.errors, rt.logger)).Post("/process", rt.audio.Process)
		r.Get("/jobs/{jobID}", rt.audio.GetJob)
	})

	return router
}

func (rt *Router) swaggerDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(swagger.SwaggerInfo.ReadDoc()))
}
