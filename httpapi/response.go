package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	goIdentity "github.com/MrEthical07/goIdentity"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// writeError maps err onto the envelope. Anything that is not a domain or
// validation failure is logged and answered with a generic message.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := goIdentity.StatusCode(err)
	if status >= http.StatusInternalServerError && !isDomainError(err) {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, envelope{Success: false, Message: goIdentity.PublicMessage(err)})
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, envelope{
		Success: false,
		Message: goIdentity.ErrRateLimited.Message,
	})
}

func isDomainError(err error) bool {
	var be *goIdentity.BusinessError
	return errors.As(err, &be)
}
