package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"mintgate/pkg/platform/httputil"
	"mintgate/pkg/platform/middleware/metadata"
	"mintgate/pkg/requestcontext"
)

// ErrorResponse is the 429 body.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware limits requests per authenticated principal, falling back to
// the client IP. A limit of zero disables it. Store failures fail open.
func Middleware(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "ip:" + metadata.GetClientIP(ctx)
			if p := requestcontext.Principal(ctx); !p.IsNil() {
				key = "principal:" + p.String()
			}

			result, err := store.Allow(ctx, key, limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retry := int(math.Ceil(result.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				logger.WarnContext(ctx, "rate limit exceeded", "key", key, "request_id", requestcontext.RequestID(ctx))
				httputil.WriteJSON(w, http.StatusTooManyRequests, &ErrorResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: retry,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
