package middleware

import (
	"net/http"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit rejects callers that exhaust their bucket with 429. Authenticated
// callers are keyed by subject, anonymous ones by client IP.
func RateLimit(limiter auth.RateLimiter, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
				key = "sub:" + claims.Subject
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// fail open; the limiter is advisory
				logger.Warn("Rate limiter error", zap.String("key", key), zap.Error(err))
			} else if !allowed {
				w.Header().Set("Retry-After", "60")
				errorHandler.Handle(w, r, apperrors.NewRateLimited("Rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
