package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"givepool/internal/platform/middleware"
	"givepool/pkg/platform/httputil"
)

// Middleware applies a Limiter keyed by the authenticated caller. A limiter
// error lets the request through: losing backpressure is better than losing
// donations.
func Middleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := middleware.GetCallerID(ctx)
			if key == "" {
				key = r.RemoteAddr
			}

			result, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"request_id", middleware.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       "rate_limit_exceeded",
					"message":     "Too many donations. Please try again later.",
					"retry_after": result.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
