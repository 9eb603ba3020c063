package goIdentity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]User
	seq   int
	err   error

	// nilOnMiss makes FindByEmail report a miss as (nil, nil).
	nilOnMiss bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]User{}}
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[email]
	if !ok {
		if d.nilOnMiss {
			return nil, nil
		}
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *fakeDirectory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.users[email]
	return ok, nil
}

func (d *fakeDirectory) Save(_ context.Context, user *User) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u := *user
	if u.ID == "" {
		if _, ok := d.users[u.Email]; ok {
			return nil, ErrEmailExists
		}
		d.seq++
		u.ID = fmt.Sprintf("u%d", d.seq)
	}
	d.users[u.Email] = u
	return &u, nil
}

func (d *fakeDirectory) get(email string) (User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[email]
	return u, ok
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	err   error
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: map[string]string{}}
}

func (m *captureMailer) SendOTPEmail(_ context.Context, email, code string, purpose Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[string(purpose)+"|"+email] = code
	m.sent++
	return nil
}

func (m *captureMailer) code(t *testing.T, email string, purpose Purpose) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[string(purpose)+"|"+email]
	if !ok {
		t.Fatalf("no %s code mailed to %s", purpose, email)
	}
	return code
}

type fakeOAuth struct {
	idToken     string
	exchangeErr error
	identity    OAuthIdentity
	verifyErr   error
}

func (f *fakeOAuth) Exchange(context.Context, string) (string, error) {
	return f.idToken, f.exchangeErr
}

func (f *fakeOAuth) VerifyIDToken(context.Context, string) (OAuthIdentity, error) {
	return f.identity, f.verifyErr
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	dir    *fakeDirectory
	mailer *captureMailer
	oauth  *fakeOAuth
	clock  *testClock
}

// advance moves the engine clock and Redis TTLs forward together.
func (env *testEnv) advance(d time.Duration) {
	env.clock.mu.Lock()
	env.clock.now = env.clock.now.Add(d)
	env.clock.mu.Unlock()
	env.mr.FastForward(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.JWT.Issuer = "goidentity-test"
	cfg.Password.Algorithm = "bcrypt"
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		mr:     mr,
		rdb:    rdb,
		dir:    newFakeDirectory(),
		mailer: newCaptureMailer(),
		oauth:  &fakeOAuth{idToken: "id-token"},
		clock:  &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(env.dir).
		WithMailer(env.mailer).
		WithOAuthProvider(env.oauth).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

// registerUser drives a full register + verify for email.
func (env *testEnv) registerUser(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()
	if err := env.engine.Register(ctx, RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		FullName:        "Test User",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := env.mailer.code(t, email, PurposeRegister)
	if _, err := env.engine.VerifyRegister(ctx, VerifyRegisterInput{Email: email, OTP: code}); err != nil {
		t.Fatalf("VerifyRegister failed: %v", err)
	}
}

func wrongCode(code string) string {
	if strings.HasPrefix(code, "0") {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}

func assertBusinessError(t *testing.T, err error, want *BusinessError) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
