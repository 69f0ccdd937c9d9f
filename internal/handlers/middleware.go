package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"alphabettutor/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionClaimsContextKey ContextKey = "session_claims"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenIssuer
	limiter *security.RateLimiter
	logger  *zap.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
func NewMiddleware(tokens *security.TokenIssuer, limiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
	}
}

// RequireSession requires a bearer token issued for the session named in the path
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		claims, err := m.tokens.ParseSessionToken(token)
		if err != nil {
			respondWithError(w, m.logger, http.StatusUnauthorized, ErrUnauthorized, "rejected session token", err)
			return
		}
		if claims.SessionID() != r.PathValue("id") {
			respondWithError(w, m.logger, http.StatusForbidden, ErrForbidden, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), SessionClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			respondWithError(w, m.logger, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logging middleware logs HTTP requests
func Logging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)))
	})
}

// GetSessionClaims retrieves the verified token claims from the request context
func GetSessionClaims(ctx context.Context) *security.SessionClaims {
	claims, ok := ctx.Value(SessionClaimsContextKey).(*security.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
