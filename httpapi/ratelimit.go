package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	goIdentity "github.com/MrEthical07/goIdentity"
)

// rateLimit spends one request from the caller's window in scope. When Redis
// is unreachable the request is let through and a warning is logged.
func (a *API) rateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			retryAfter, err := a.engine.AllowRequest(r.Context(), scope, clientIP(r))
			switch {
			case err == nil:
			case errors.Is(err, goIdentity.ErrRateLimited):
				writeRateLimited(w, retryAfter)
				return
			default:
				a.logger.Warn("rate limiter unavailable, allowing request",
					zap.String("scope", scope),
					zap.Error(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}
