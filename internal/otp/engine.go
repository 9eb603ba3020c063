package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 4

// Config controls code shape, lifetimes and the attempt budget.
type Config struct {
	CodeDigits   int
	Expire       time.Duration
	Cooldown     time.Duration
	LockDuration time.Duration
	MaxAttempts  int
	KeyPrefix    string
}

// DefaultConfig returns 6-digit codes valid for 15 minutes, a 1 minute
// request cooldown and a 30 minute lock after 5 failures.
func DefaultConfig() Config {
	return Config{
		CodeDigits:   6,
		Expire:       15 * time.Minute,
		Cooldown:     time.Minute,
		LockDuration: 30 * time.Minute,
		MaxAttempts:  5,
	}
}

// Validate checks that every lifetime is positive and the attempt budget is usable.
func (c Config) Validate() error {
	if _, _, err := internal.CodeRange(c.CodeDigits); err != nil {
		return err
	}
	if c.Expire <= 0 || c.Cooldown <= 0 || c.LockDuration <= 0 {
		return errors.New("otp durations must be > 0")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be > 0")
	}
	return nil
}

// Engine owns OTP state for every (purpose, email) pair.
type Engine struct {
	redis  redis.UniversalClient
	cfg    Config
	now    func() time.Time
	codeLo int64
	codeHi int64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for timestamp checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New validates cfg and returns an Engine over redisClient.
func New(redisClient redis.UniversalClient, cfg Config, opts ...Option) (*Engine, error) {
	if redisClient == nil {
		return nil, errors.New("otp: redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lo, hi, _ := internal.CodeRange(cfg.CodeDigits)

	e := &Engine{
		redis:  redisClient,
		cfg:    cfg,
		now:    time.Now,
		codeLo: lo,
		codeHi: hi,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Generate issues a fresh code for (email, purpose), replacing any previous
// code and resetting the attempt counter. It fails with ErrLocked while a
// lock is active and with ErrCooldownActive inside the request cooldown.
func (e *Engine) Generate(ctx context.Context, email, purpose string) (string, error) {
	k := e.keys(purpose, email)

	code, err := internal.NewNumericCode(e.codeLo, e.codeHi)
	if err != nil {
		return "", err
	}

	for i := 0; i < maxRetries; i++ {
		err := e.redis.Watch(ctx, func(tx *redis.Tx) error {
			now := e.now()

			lockedUntil, stale, _, err := e.lockState(ctx, tx, k.lock, now)
			if err != nil {
				return err
			}
			if !lockedUntil.IsZero() {
				return ErrLocked
			}

			active, err := e.cooldownActive(ctx, tx, k.request, now)
			if err != nil {
				return err
			}
			if active {
				return ErrCooldownActive
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if stale {
					pipe.Del(ctx, k.lock)
				}
				pipe.Del(ctx, k.otp, k.attempt)
				pipe.Set(ctx, k.otp, code, e.cfg.Expire)
				pipe.Set(ctx, k.attempt, "0", e.cfg.Expire)
				pipe.Set(ctx, k.request, formatTime(now), e.cfg.Cooldown)
				return nil
			})
			return err
		}, k.lock, k.request, k.otp, k.attempt)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", classify(err)
		}
		return code, nil
	}

	// Every retry lost to a concurrent writer, which has just claimed the window.
	return "", ErrCooldownActive
}

// verifyScript compares and counts in one step. It returns -1 when the lock
// key no longer holds the value read by the caller, 0 on a match, 1 on a
// counted failure and 2 on the failure that writes the lock.
//
// KEYS: otp, attempt, lock
// ARGV: candidate, observed lock ("" when absent), purge stale lock ("1"),
// max attempts, attempt ttl ms, lock value, lock ttl ms
const verifyScript = `
local lock = redis.call("GET", KEYS[3])
if not lock then
  lock = ""
end
if lock ~= ARGV[2] then
  return -1
end

local stored = redis.call("GET", KEYS[1])
if stored and stored == ARGV[1] then
  redis.call("DEL", KEYS[1], KEYS[2], KEYS[3])
  return 0
end

if ARGV[3] == "1" then
  redis.call("DEL", KEYS[3])
end

local attempts = tonumber(redis.call("GET", KEYS[2]) or "0") or 0
if attempts < 0 then
  attempts = 0
end
attempts = attempts + 1

if attempts >= tonumber(ARGV[4]) then
  redis.call("SET", KEYS[3], ARGV[6], "PX", ARGV[7])
  redis.call("DEL", KEYS[2])
  return 2
end

redis.call("SET", KEYS[2], tostring(attempts), "PX", ARGV[5])
return 1
`

var verifyLua = redis.NewScript(verifyScript)

// Verify checks candidate against the live code for (email, purpose).
//
// A match clears the code, the counter and any lock. A mismatch increments
// the counter; the failure that reaches MaxAttempts writes a lock for
// LockDuration, clears the counter and returns ErrTooManyAttempts. Other
// mismatches return ErrInvalidOrExpired. Every reported mismatch has been
// counted.
func (e *Engine) Verify(ctx context.Context, email, purpose, candidate string) error {
	k := e.keys(purpose, email)

	for i := 0; i < maxRetries; i++ {
		now := e.now()

		lockedUntil, stale, raw, err := e.lockState(ctx, e.redis, k.lock, now)
		if err != nil {
			return classify(err)
		}
		if !lockedUntil.IsZero() {
			return ErrLocked
		}

		purge := "0"
		if stale {
			purge = "1"
		}
		res, err := verifyLua.Run(ctx, e.redis,
			[]string{k.otp, k.attempt, k.lock},
			candidate,
			raw,
			purge,
			e.cfg.MaxAttempts,
			e.cfg.Expire.Milliseconds(),
			formatTime(now.Add(e.cfg.LockDuration)),
			e.cfg.LockDuration.Milliseconds(),
		).Int()
		if err != nil {
			return classify(err)
		}

		switch res {
		case 0:
			return nil
		case 1:
			return ErrInvalidOrExpired
		case 2:
			return ErrTooManyAttempts
		}
		// The lock changed between the read and the script; re-evaluate it.
	}

	// The lock kept changing under concurrent lockouts. No comparison ran.
	return ErrLocked
}

// Snapshot is a read-only view of the OTP state for one (purpose, email).
type Snapshot struct {
	HasCode       bool
	Attempts      int
	LockedUntil   time.Time
	CooldownUntil time.Time
}

// State reports the current OTP state without mutating it.
func (e *Engine) State(ctx context.Context, email, purpose string) (Snapshot, error) {
	k := e.keys(purpose, email)

	pipe := e.redis.Pipeline()
	otpCmd := pipe.Exists(ctx, k.otp)
	attemptCmd := pipe.Get(ctx, k.attempt)
	lockCmd := pipe.Get(ctx, k.lock)
	requestCmd := pipe.Get(ctx, k.request)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var s Snapshot
	s.HasCode = otpCmd.Val() > 0
	if n, err := strconv.Atoi(attemptCmd.Val()); err == nil {
		s.Attempts = n
	}
	if t, err := parseTime(lockCmd.Val()); err == nil && e.now().Before(t) {
		s.LockedUntil = t
	}
	if t, err := parseTime(requestCmd.Val()); err == nil {
		if until := t.Add(e.cfg.Cooldown); e.now().Before(until) {
			s.CooldownUntil = until
		}
	}
	return s, nil
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// lockState returns the lock expiry when a lock is active. stale reports a
// lock key that is present but expired or unreadable. raw is the stored value,
// empty when the key is absent.
func (e *Engine) lockState(ctx context.Context, c getter, key string, now time.Time) (time.Time, bool, string, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, "", nil
	}
	if err != nil {
		return time.Time{}, false, "", err
	}

	until, err := parseTime(raw)
	if err != nil || !now.Before(until) {
		return time.Time{}, true, raw, nil
	}
	return until, false, raw, nil
}

func (e *Engine) cooldownActive(ctx context.Context, tx *redis.Tx, key string, now time.Time) (bool, error) {
	raw, err := tx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	last, err := parseTime(raw)
	if err != nil {
		// Unreadable timestamp: the key TTL still bounds the window.
		return true, nil
	}
	return now.Before(last.Add(e.cfg.Cooldown)), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrLocked), errors.Is(err, ErrCooldownActive),
		errors.Is(err, ErrTooManyAttempts), errors.Is(err, ErrInvalidOrExpired):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
