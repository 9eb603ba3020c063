package otp

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail   = "a@x.com"
	testPurpose = "REGISTER"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type harness struct {
	engine *Engine
	mr     *miniredis.Miniredis
	clock  *testClock
}

// advance moves both the engine clock and Redis TTLs forward.
func (h *harness) advance(d time.Duration) {
	h.clock.mu.Lock()
	h.clock.now = h.clock.now.Add(d)
	h.clock.mu.Unlock()
	h.mr.FastForward(d)
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	e, err := New(rdb, cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &harness{engine: e, mr: mr, clock: clock}
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func TestGenerateWritesCodeCounterAndRequest(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 100000 || n > 999999 {
		t.Fatalf("code out of range: %q", code)
	}

	if got, _ := h.mr.Get("otp:REGISTER:a@x.com"); got != code {
		t.Fatalf("stored code = %q, want %q", got, code)
	}
	if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != "0" {
		t.Fatalf("attempt counter = %q, want 0", got)
	}
	if !h.mr.Exists("otp_request:REGISTER:a@x.com") {
		t.Fatal("expected request timestamp")
	}
	if ttl := h.mr.TTL("otp:REGISTER:a@x.com"); ttl != 15*time.Minute {
		t.Fatalf("otp ttl = %v", ttl)
	}
	if ttl := h.mr.TTL("otp_request:REGISTER:a@x.com"); ttl != time.Minute {
		t.Fatalf("request ttl = %v", ttl)
	}
}

func TestGenerateTwiceWithinCooldown(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if _, err := h.engine.Generate(ctx, testEmail, testPurpose); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	h.advance(30 * time.Second)
	if _, err := h.engine.Generate(ctx, testEmail, testPurpose); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	// Other purposes are independent.
	if _, err := h.engine.Generate(ctx, testEmail, "FORGOT_PASSWORD"); err != nil {
		t.Fatalf("Generate for other purpose failed: %v", err)
	}
}

func TestGenerateAfterCooldownReplacesCode(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, wrongCode(first)); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired, got %v", err)
	}

	h.advance(61 * time.Second)
	second, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != "0" {
		t.Fatalf("attempt counter not reset: %q", got)
	}
	if first != second {
		if err := h.engine.Verify(ctx, testEmail, testPurpose, first); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("previous code must be invalid, got %v", err)
		}
	}
}

func TestVerifySuccessClearsState(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, wrongCode(code)); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired, got %v", err)
	}
	if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != "1" {
		t.Fatalf("attempt counter = %q, want 1", got)
	}

	if err := h.engine.Verify(ctx, testEmail, testPurpose, code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	for _, key := range []string{"otp:REGISTER:a@x.com", "otp_attempt:REGISTER:a@x.com", "otp_lock:REGISTER:a@x.com"} {
		if h.mr.Exists(key) {
			t.Fatalf("expected %s removed", key)
		}
	}

	// Single use.
	if err := h.engine.Verify(ctx, testEmail, testPurpose, code); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired on reuse, got %v", err)
	}
}

func TestVerifyRequiresExactMatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, candidate := range []string{" " + code, code + " ", code[:5], ""} {
		if err := h.engine.Verify(ctx, testEmail, testPurpose, candidate); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("candidate %q: expected ErrInvalidOrExpired, got %v", candidate, err)
		}
	}
}

func TestFiveFailuresLockThenLocked(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	bad := wrongCode(code)

	for i := 1; i <= 4; i++ {
		if err := h.engine.Verify(ctx, testEmail, testPurpose, bad); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("attempt %d: expected ErrInvalidOrExpired, got %v", i, err)
		}
		if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != strconv.Itoa(i) {
			t.Fatalf("attempt %d: counter = %q", i, got)
		}
	}

	if err := h.engine.Verify(ctx, testEmail, testPurpose, bad); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("5th attempt: expected ErrTooManyAttempts, got %v", err)
	}
	if h.mr.Exists("otp_attempt:REGISTER:a@x.com") {
		t.Fatal("attempt counter must be cleared on lock")
	}
	if ttl := h.mr.TTL("otp_lock:REGISTER:a@x.com"); ttl != 30*time.Minute {
		t.Fatalf("lock ttl = %v", ttl)
	}

	if err := h.engine.Verify(ctx, testEmail, testPurpose, code); !errors.Is(err, ErrLocked) {
		t.Fatalf("6th attempt: expected ErrLocked, got %v", err)
	}
	h.advance(2 * time.Minute)
	if _, err := h.engine.Generate(ctx, testEmail, testPurpose); !errors.Is(err, ErrLocked) {
		t.Fatalf("Generate while locked: expected ErrLocked, got %v", err)
	}

	snap, err := h.engine.State(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if snap.LockedUntil.IsZero() {
		t.Fatal("expected lock in snapshot")
	}
}

func TestLockExpiresAfterDuration(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = h.engine.Verify(ctx, testEmail, testPurpose, "000000")
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, "000000"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	h.advance(31 * time.Minute)

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate after lock expiry failed: %v", err)
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, code); err != nil {
		t.Fatalf("Verify after lock expiry failed: %v", err)
	}
}

func TestVerifyWithoutCodeCountsFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if err := h.engine.Verify(ctx, testEmail, testPurpose, "111111"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired, got %v", err)
	}
	if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != "1" {
		t.Fatalf("attempt counter = %q, want 1", got)
	}
}

func TestStaleLockIsPurged(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// Present in Redis but already in the past by its own timestamp.
	past := h.clock.Now().Add(-time.Minute).UTC().Format(time.RFC3339Nano)
	if err := h.mr.Set("otp_lock:REGISTER:a@x.com", past); err != nil {
		t.Fatalf("seed lock failed: %v", err)
	}
	h.mr.SetTTL("otp_lock:REGISTER:a@x.com", 10*time.Minute)

	if err := h.engine.Verify(ctx, testEmail, testPurpose, "111111"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected ErrInvalidOrExpired, got %v", err)
	}
	if h.mr.Exists("otp_lock:REGISTER:a@x.com") {
		t.Fatal("expected stale lock removed")
	}

	if err := h.mr.Set("otp_lock:FORGOT_PASSWORD:a@x.com", "not-a-timestamp"); err != nil {
		t.Fatalf("seed lock failed: %v", err)
	}
	if _, err := h.engine.Generate(ctx, testEmail, "FORGOT_PASSWORD"); err != nil {
		t.Fatalf("Generate with unreadable lock failed: %v", err)
	}
	if h.mr.Exists("otp_lock:FORGOT_PASSWORD:a@x.com") {
		t.Fatal("expected unreadable lock removed")
	}
}

func TestKeyPrefix(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.KeyPrefix = "gi" })

	if _, err := h.engine.Generate(context.Background(), testEmail, testPurpose); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !h.mr.Exists("gi:otp:REGISTER:a@x.com") {
		t.Fatal("expected prefixed key")
	}
}

func TestRedisUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.mr.Close()

	ctx := context.Background()
	if _, err := h.engine.Generate(ctx, testEmail, testPurpose); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Generate: expected ErrUnavailable, got %v", err)
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, "123456"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Verify: expected ErrUnavailable, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero attempts")
	}

	cfg = DefaultConfig()
	cfg.Cooldown = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero cooldown")
	}

	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for nil redis")
	}
}

func TestConcurrentGenerateSingleWinner(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	const workers = 30
	for round := 0; round < 20; round++ {
		h.advance(61 * time.Second)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
			other   []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.engine.Generate(ctx, testEmail, testPurpose)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners++
				case errors.Is(err, ErrCooldownActive):
				default:
					other = append(other, err)
				}
			}()
		}
		wg.Wait()

		if len(other) > 0 {
			t.Fatalf("round %d: unexpected errors: %v", round, other)
		}
		if winners != 1 {
			t.Fatalf("round %d: winners = %d, want 1", round, winners)
		}
	}
}

func TestConcurrentVerifyCountsEveryFailure(t *testing.T) {
	const workers = 40
	h := newHarness(t, func(c *Config) { c.MaxAttempts = workers })
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	bad := wrongCode(code)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[string]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.engine.Verify(ctx, testEmail, testPurpose, bad)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrInvalidOrExpired):
				outcomes["invalid"]++
			case errors.Is(err, ErrTooManyAttempts):
				outcomes["too_many"]++
			default:
				outcomes["other"]++
				t.Errorf("unexpected Verify result: %v", err)
			}
		}()
	}
	wg.Wait()

	if outcomes["invalid"] != workers-1 || outcomes["too_many"] != 1 {
		t.Fatalf("outcomes = %v, want %d invalid and 1 too_many", outcomes, workers-1)
	}
	if !h.mr.Exists("otp_lock:REGISTER:a@x.com") {
		t.Fatal("expected lock after the attempt budget was spent")
	}
	if err := h.engine.Verify(ctx, testEmail, testPurpose, code); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestConcurrentVerifyBelowLimitCountsExactly(t *testing.T) {
	const workers = 25
	h := newHarness(t, func(c *Config) { c.MaxAttempts = 100 })
	ctx := context.Background()

	code, err := h.engine.Generate(ctx, testEmail, testPurpose)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.engine.Verify(ctx, testEmail, testPurpose, wrongCode(code))
		}()
	}
	wg.Wait()

	if got, _ := h.mr.Get("otp_attempt:REGISTER:a@x.com"); got != strconv.Itoa(workers) {
		t.Fatalf("attempt counter = %q, want %d", got, workers)
	}
}
