package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/directory/memory"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTPEmail(_ context.Context, email, code string, purpose goIdentity.Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[string(purpose)+"|"+email] = code
	return nil
}

func (m *captureMailer) code(t *testing.T, email string, purpose goIdentity.Purpose) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[string(purpose)+"|"+email]
	if !ok {
		t.Fatalf("no %s code mailed to %s", purpose, email)
	}
	return code
}

type apiEnv struct {
	server *httptest.Server
	mr     *miniredis.Miniredis
	mailer *captureMailer
	dir    *memory.Directory
}

func newAPIEnv(t *testing.T, mutate func(*goIdentity.Config), opts Options) *apiEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goIdentity.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	if mutate != nil {
		mutate(&cfg)
	}

	env := &apiEnv{
		mr:     mr,
		mailer: &captureMailer{codes: map[string]string{}},
		dir:    memory.New(),
	}
	engine, err := goIdentity.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(env.dir).
		WithMailer(env.mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	env.server = httptest.NewServer(NewRouter(engine, nil, opts))
	t.Cleanup(env.server.Close)
	return env
}

type response struct {
	status int
	header http.Header
	body   struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, header: resp.Header}
	if err := json.NewDecoder(resp.Body).Decode(&out.body); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return out
}

func (env *apiEnv) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	res := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": password, "confirmPassword": password, "fullName": "Ada",
	})
	if res.status != http.StatusOK {
		t.Fatalf("register: expected 200, got %d (%s)", res.status, res.body.Message)
	}

	code := env.mailer.code(t, email, goIdentity.PurposeRegister)
	res = env.do(t, http.MethodPost, "/auth/register/verify", "", map[string]string{"email": email, "otp": code})
	if res.status != http.StatusCreated {
		t.Fatalf("verify: expected 201, got %d (%s)", res.status, res.body.Message)
	}

	res = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	if res.status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", res.status, res.body.Message)
	}
	var auth goIdentity.AuthResult
	if err := json.Unmarshal(res.body.Data, &auth); err != nil {
		t.Fatalf("decode auth result: %v", err)
	}
	if auth.Token == "" {
		t.Fatal("expected token in login response")
	}
	return auth.Token
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})
	token := env.registerAndLogin(t, "ada@example.com", "Secret123!")

	res := env.do(t, http.MethodGet, "/profile", token, nil)
	if res.status != http.StatusOK || !res.body.Success {
		t.Fatalf("profile: expected 200, got %d (%s)", res.status, res.body.Message)
	}
	var p goIdentity.Profile
	if err := json.Unmarshal(res.body.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Email != "ada@example.com" || p.FullName != "Ada" || p.Role != goIdentity.RoleUser {
		t.Fatalf("unexpected profile: %+v", p)
	}

	res = env.do(t, http.MethodPatch, "/profile", token, map[string]string{"fullName": "Ada L."})
	if res.status != http.StatusOK {
		t.Fatalf("update profile: expected 200, got %d (%s)", res.status, res.body.Message)
	}
	if err := json.Unmarshal(res.body.Data, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.FullName != "Ada L." {
		t.Fatalf("expected updated name, got %q", p.FullName)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})

	res := env.do(t, http.MethodGet, "/profile", "", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.status)
	}
	if res.body.Success {
		t.Fatal("expected success=false")
	}
}

func TestValidationErrors(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})

	cases := []struct {
		name string
		path string
		body any
	}{
		{"bad email", "/auth/register", map[string]string{"email": "nope", "password": "p", "confirmPassword": "p"}},
		{"missing password", "/auth/login", map[string]string{"email": "a@example.com"}},
		{"missing code", "/auth/login/google", map[string]string{}},
		{"unknown field", "/auth/password/forgot", map[string]string{"email": "a@example.com", "extra": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := env.do(t, http.MethodPost, tc.path, "", tc.body)
			if res.status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", res.status, res.body.Message)
			}
			if res.body.Message == "" {
				t.Fatal("expected a field message")
			}
		})
	}
}

func TestBusinessErrorsMapToStatus(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})
	env.registerAndLogin(t, "ada@example.com", "Secret123!")

	res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	if res.status != http.StatusBadRequest || res.body.Message != goIdentity.ErrWrongPassword.Message {
		t.Fatalf("wrong password: got %d %q", res.status, res.body.Message)
	}

	res = env.do(t, http.MethodPost, "/auth/password/forgot", "", map[string]string{"email": "ghost@example.com"})
	if res.status != http.StatusNotFound {
		t.Fatalf("unknown email: expected 404, got %d", res.status)
	}

	res = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "x", "confirmPassword": "x",
	})
	if res.status != http.StatusBadRequest || res.body.Message != goIdentity.ErrEmailExists.Message {
		t.Fatalf("existing email: got %d %q", res.status, res.body.Message)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})
	env.registerAndLogin(t, "ada@example.com", "Secret123!")

	res := env.do(t, http.MethodPost, "/auth/password/forgot", "", map[string]string{"email": "ada@example.com"})
	if res.status != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d (%s)", res.status, res.body.Message)
	}
	code := env.mailer.code(t, "ada@example.com", goIdentity.PurposeForgotPassword)

	res = env.do(t, http.MethodPatch, "/auth/password/forgot/verify", "", map[string]string{
		"email": "ada@example.com", "otp": code, "newPassword": "NewSecret1!", "confirmPassword": "NewSecret1!",
	})
	if res.status != http.StatusOK {
		t.Fatalf("verify forgot: expected 200, got %d (%s)", res.status, res.body.Message)
	}

	res = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "NewSecret1!"})
	if res.status != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", res.status)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	env := newAPIEnv(t, func(cfg *goIdentity.Config) {
		cfg.RateLimit.MaxRequests = 2
	}, Options{})

	body := map[string]string{"email": "ghost@example.com"}
	for i := 0; i < 2; i++ {
		if res := env.do(t, http.MethodPost, "/auth/password/forgot", "", body); res.status != http.StatusNotFound {
			t.Fatalf("request %d: expected 404, got %d", i+1, res.status)
		}
	}

	res := env.do(t, http.MethodPost, "/auth/password/forgot", "", body)
	if res.status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.status)
	}
	if res.header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// The limiter only guards /auth.
	if res := env.do(t, http.MethodGet, "/healthz", "", nil); res.status != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", res.status)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	env := newAPIEnv(t, nil, Options{})
	env.mr.Close()

	res := env.do(t, http.MethodPost, "/auth/password/forgot", "", map[string]string{"email": "ghost@example.com"})
	if res.status != http.StatusNotFound {
		t.Fatalf("expected request to pass the limiter and fail with 404, got %d", res.status)
	}
}

func TestMetricsRouteMountedWhenConfigured(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"metrics"}`))
	})
	env := newAPIEnv(t, nil, Options{MetricsHandler: metrics})

	res := env.do(t, http.MethodGet, "/metrics", "", nil)
	if res.status != http.StatusOK || res.body.Message != "metrics" {
		t.Fatalf("unexpected /metrics response: %d %q", res.status, res.body.Message)
	}

	bare := newAPIEnv(t, nil, Options{})
	if res := bare.do(t, http.MethodGet, "/metrics", "", nil); res.status != http.StatusNotFound {
		t.Fatalf("expected 404 without handler, got %d", res.status)
	}
}
