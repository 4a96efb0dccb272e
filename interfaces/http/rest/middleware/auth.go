package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/auth"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token. A nil validator disables the
// check so deployments without JWT_SECRET stay open.
func Authenticate(validator TokenValidator, errorHandler *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				errorHandler.Handle(w, r, apperrors.NewUnauthorized("Missing authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errorHandler.Handle(w, r, apperrors.NewUnauthorized("Token has expired"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errorHandler.Handle(w, r, apperrors.NewUnauthorized("Invalid token signature"))
				default:
					errorHandler.Handle(w, r, apperrors.NewUnauthorized("Invalid token"))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// extractToken reads a bearer token from the Authorization header
func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are only
// honoured when the router mounts chi's RealIP, which rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
