package goIdentity

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/otp"
	"github.com/MrEthical07/goIdentity/internal/rate"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine from configuration and collaborators.
//
// Builder instances are single use: Build may succeed at most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory  UserDirectory
	mailer     Mailer
	oauth      OAuthProvider
	principals PrincipalResolver
	auditSink  AuditSink
	logger     *zap.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the store holding OTP, pending registration and rate limit state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory sets the durable user store. Required.
func (b *Builder) WithUserDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithMailer sets the OTP mail sender. Required.
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithOAuthProvider enables GoogleLogin. Without it GoogleLogin fails with ErrOAuthLoginFailed.
func (b *Builder) WithOAuthProvider(provider OAuthProvider) *Builder {
	b.oauth = provider
	return b
}

// WithPrincipalResolver overrides the directory-backed resolver used by Authenticate.
func (b *Builder) WithPrincipalResolver(resolver PrincipalResolver) *Builder {
	b.principals = resolver
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// Events are only dispatched when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for best-effort failures. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for OTP timestamps and token issuance.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, checks required collaborators and wires
// the OTP engine, password hasher, token manager, rate limiter, audit
// dispatcher and metrics.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- OTP ENGINE --------
	otpEngine, err := otp.New(b.redis, cfg.otpConfig(), otp.WithClock(now))
	if err != nil {
		return nil, err
	}

	// -------- CREDENTIALS --------
	ph, err := password.New(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL: cfg.JWT.AccessTTL,
		Secret:    cloneBytes(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		Leeway:    cfg.JWT.Leeway,
		KeyID:     cfg.JWT.KeyID,
	}, jwt.WithClock(now))
	if err != nil {
		return nil, err
	}

	ratePrefix := "rl"
	if cfg.OTP.KeyPrefix != "" {
		ratePrefix = cfg.OTP.KeyPrefix + ":rl"
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	principals := b.principals
	if principals == nil {
		principals = NewDirectoryPrincipalResolver(b.directory)
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		otp:          otpEngine,
		passwordHash: ph,
		jwtManager:   jm,
		directory:    b.directory,
		mailer:       b.mailer,
		oauth:        b.oauth,
		principals:   principals,
		logger:       logger,
		now:          now,
	}
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		Enabled:     cfg.RateLimit.Enabled,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		KeyPrefix:   ratePrefix,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
