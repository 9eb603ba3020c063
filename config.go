package goIdentity

import (
	"errors"
	"time"

	"github.com/MrEthical07/goIdentity/internal/otp"
	"github.com/MrEthical07/goIdentity/password"
)

// Config aggregates every engine setting.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	OTP       OTPConfig
	JWT       JWTConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls one-time code lifetimes and the attempt budget.
type OTPConfig struct {
	CodeDigits   int
	Expire       time.Duration
	Cooldown     time.Duration
	LockDuration time.Duration
	MaxAttempts  int
	KeyPrefix    string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds HS256 access token parameters.
type JWTConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
	Audience  string
	Leeway    time.Duration
	KeyID     string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and its cost parameters.
type PasswordConfig struct {
	Algorithm   string // "argon2id" (default) or "bcrypt"
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	BcryptCost  int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig is the per-client fixed window applied by AllowRequest.
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// SinkTimeout bounds each sink call. Zero means no deadline.
	SinkTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. JWT.Secret is left empty and
// must be supplied.
func DefaultConfig() Config {
	otpDefaults := otp.DefaultConfig()
	pw := password.DefaultConfig()
	return Config{
		OTP: OTPConfig{
			CodeDigits:   otpDefaults.CodeDigits,
			Expire:       otpDefaults.Expire,
			Cooldown:     otpDefaults.Cooldown,
			LockDuration: otpDefaults.LockDuration,
			MaxAttempts:  otpDefaults.MaxAttempts,
		},
		JWT: JWTConfig{
			AccessTTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:   string(pw.Algorithm),
			Memory:      pw.Argon2.Memory,
			Time:        pw.Argon2.Time,
			Parallelism: pw.Argon2.Parallelism,
			SaltLength:  pw.Argon2.SaltLength,
			KeyLength:   pw.Argon2.KeyLength,
			BcryptCost:  pw.BcryptCost,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: 30,
			Window:      time.Minute,
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found. Sub-package
// constructors validate their own parameters again at Build.
func (c *Config) Validate() error {
	if err := c.otpConfig().Validate(); err != nil {
		return err
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}

	switch password.Algorithm(c.Password.Algorithm) {
	case password.AlgorithmArgon2id, password.AlgorithmBcrypt:
	default:
		return errors.New("unsupported password algorithm")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("RateLimit MaxRequests must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Audit.SinkTimeout < 0 {
		return errors.New("Audit SinkTimeout must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c *Config) otpConfig() otp.Config {
	return otp.Config{
		CodeDigits:   c.OTP.CodeDigits,
		Expire:       c.OTP.Expire,
		Cooldown:     c.OTP.Cooldown,
		LockDuration: c.OTP.LockDuration,
		MaxAttempts:  c.OTP.MaxAttempts,
		KeyPrefix:    c.OTP.KeyPrefix,
	}
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Algorithm: password.Algorithm(c.Password.Algorithm),
		Argon2: password.Argon2Config{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,

			MaxPasswordBytes: password.DefaultArgon2Config().MaxPasswordBytes,
		},
		BcryptCost: c.Password.BcryptCost,
	}
}
