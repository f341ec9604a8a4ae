// Package middleware provides the HTTP middleware chain: authentication,
// rate limiting, and request logging.
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sidebet-backend/pkg/auth"
	"sidebet-backend/pkg/common"
)

// Authenticator verifies bearer tokens and stashes the caller identity in
// the request context.
type Authenticator struct {
	validator *auth.JWTValidator
	logger    *zap.Logger
}

// NewAuthenticator creates the auth middleware.
func NewAuthenticator(validator *auth.JWTValidator, logger *zap.Logger) *Authenticator {
	return &Authenticator{validator: validator, logger: logger.Named("auth")}
}

// Middleware rejects requests without a valid bearer token carrying the
// openid scope. Every route behind it sees a verified, scoped identity.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header must be a bearer token")
			return
		}

		identity, err := a.validator.ValidateToken(token)
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}
		if !identity.HasScope(auth.ScopeOpenID) {
			a.logger.Debug("token lacks required scope", zap.String("subject", identity.Subject))
			common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "scope \"openid\" required")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetIdentity(r.Context(), identity)))
	})
}

// RateLimit throttles requests per caller, falling back to the remote
// address before authentication has run.
func RateLimit(limiter auth.RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("ratelimit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if identity, err := auth.IdentityFromContext(r.Context()); err == nil {
				key = identity.Subject
			}
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil || !allowed {
				log.Warn("request throttled", zap.String("key", key))
				common.RespondError(w, http.StatusTooManyRequests, "THROTTLED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
