package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const rateLimitExceededJSON = `{"error":"Rate limit exceeded","message":"Too many requests. Please try again later.","retry_after":%d}`

// rateLimit limits each client IP using an in-memory store. If the limiter
// itself fails the request is let through.
func rateLimit(rl RateLimit, logger *slog.Logger) func(http.Handler) http.Handler {
	instance := limiter.New(memory.NewStore(), rl.Rate, limiter.WithTrustForwardHeader(rl.TrustForwardHeader))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lctx, err := instance.Get(r.Context(), instance.GetIPKey(r))
			if err != nil {
				logger.Error("rate limiter failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				retryAfter := max(int(time.Until(time.Unix(lctx.Reset, 0)).Seconds()), 0)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, rateLimitExceededJSON, retryAfter) //nolint:errcheck // client may be gone
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
