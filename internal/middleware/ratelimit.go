package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"moodloop/internal/ratelimit"
)

// RateLimit checks the (category, user) quota before the handler runs.
// Allowed requests carry X-RateLimit-Remaining; throttled ones get a 429
// with Retry-After in seconds and X-RateLimit-Reset as an epoch second.
// Runs inside RequireAuth so the user id is always on the context.
func RateLimit(limiter *ratelimit.Limiter, category string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value("userID").(int)
			if !ok {
				writeAuthError(w, "missing identity")
				return
			}

			res := limiter.Check(r.Context(), category, userID)
			if res.Remaining >= 0 {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			}
			if !res.Allowed {
				retryAfter := int(res.ResetIn.Round(time.Second).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetIn).Unix(), 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":{"code":"RATE_LIMITED","message":"too many %s requests, retry in %ds"}}`, category, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
