package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/api"

	"go.uber.org/zap"
)

// ReadinessCheck is one dependency probed by /ready
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	service string
	checks  []ReadinessCheck
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string, checks []ReadinessCheck, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		service: service,
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.Name] = err.Error()
			h.logger.Warn("Readiness check failed", zap.String("check", c.Name), zap.Error(err))
			continue
		}
		results[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	api.Success(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
