package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	CallerID string
}

type contextKeyCallerID struct{}

// ContextKeyCallerID is exported for use in handlers.
var ContextKeyCallerID = contextKeyCallerID{}

// GetCallerID retrieves the authenticated caller id from the context.
func GetCallerID(ctx context.Context) string {
	callerID, ok := ctx.Value(ContextKeyCallerID).(string)
	if !ok {
		return ""
	}
	return callerID
}

// RequireAuth resolves the caller identity from a bearer token and stores it
// in the request context. Requests without a valid token get 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCallerID, claims.CallerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminKeyVerifier checks a plaintext admin key against stored credentials.
type AdminKeyVerifier interface {
	VerifyAdminKey(key string) error
}

// RequireAdmin gates administrative routes. Two paths are accepted: an
// X-Admin-Key header verified against the configured hash, or a bearer token
// whose subject is the admin principal. The pool service re-checks the caller
// id, so this middleware is a transport convenience, not the authority.
func RequireAdmin(validator JWTValidator, verifier AdminKeyVerifier, adminPrincipal string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-Admin-Key"); key != "" && verifier != nil {
				if err := verifier.VerifyAdminKey(key); err == nil {
					ctx := context.WithValue(r.Context(), ContextKeyCallerID, adminPrincipal)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				logger.WarnContext(r.Context(), "unauthorized access - bad admin key",
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid admin key")
				return
			}

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "missing admin credentials")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil || subtle.ConstantTimeCompare([]byte(claims.CallerID), []byte(adminPrincipal)) != 1 {
				logger.WarnContext(r.Context(), "unauthorized access - non-admin caller",
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "admin access required")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyCallerID, claims.CallerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
	}
}
