package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goIdentity "github.com/MrEthical07/goIdentity"
)

type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *goIdentity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by Guard, if any.
func PrincipalFromContext(ctx context.Context) (*goIdentity.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*goIdentity.Principal)
	return p, ok && p != nil
}

// Guard rejects requests without a valid bearer token for an active account.
// Token failures answer 401 and disabled accounts 403.
func Guard(engine *goIdentity.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, goIdentity.ErrInvalidToken)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, goIdentity.ErrInvalidToken)
				return
			}

			p, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func reject(w http.ResponseWriter, err error) {
	status := goIdentity.StatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: goIdentity.PublicMessage(err)})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
