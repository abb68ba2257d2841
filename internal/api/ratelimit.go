package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"lms/internal/constants"
)

// rateLimit limits requests per client IP as seen by resolver.
func rateLimit(resolver *ClientIPResolver, requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return resolver.Resolve(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, constants.ErrCodeRateLimited, "Too many requests, please try again later")
		}),
	)
}
