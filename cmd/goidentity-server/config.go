package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	goIdentity "github.com/MrEthical07/goIdentity"
)

type serverConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DirectoryDriver string `env:"DIRECTORY_DRIVER" envDefault:"sqlite"`
	DatabaseURL     string `env:"DATABASE_URL"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"goidentity.db"`

	JWTSecret    string        `env:"JWT_SECRET,required"`
	JWTAccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"goidentity"`

	PasswordAlgorithm string `env:"PASSWORD_ALGORITHM" envDefault:"argon2id"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`

	OTPExpire       time.Duration `env:"OTP_EXPIRE" envDefault:"15m"`
	OTPCooldown     time.Duration `env:"OTP_COOLDOWN" envDefault:"1m"`
	OTPLockDuration time.Duration `env:"OTP_LOCK_DURATION" envDefault:"30m"`
	OTPMaxAttempts  int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPKeyPrefix    string        `env:"OTP_KEY_PREFIX"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	MailDriver   string `env:"MAIL_DRIVER" envDefault:"log"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"identity.audit"`
	AuditStdout     bool     `env:"AUDIT_STDOUT" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

// loadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func loadConfig(files ...string) (serverConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return serverConfig{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DirectoryDriver = strings.ToLower(strings.TrimSpace(cfg.DirectoryDriver))
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))

	switch cfg.DirectoryDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return serverConfig{}, errors.New("DATABASE_URL is required for the postgres directory")
		}
	case "sqlite", "memory":
	default:
		return serverConfig{}, fmt.Errorf("unknown DIRECTORY_DRIVER %q", cfg.DirectoryDriver)
	}
	switch cfg.MailDriver {
	case "smtp":
		if cfg.SMTPHost == "" {
			return serverConfig{}, errors.New("SMTP_HOST is required for the smtp mail driver")
		}
	case "log":
	default:
		return serverConfig{}, fmt.Errorf("unknown MAIL_DRIVER %q", cfg.MailDriver)
	}
	return cfg, nil
}

func (c serverConfig) auditEnabled() bool {
	return len(c.KafkaBrokers) > 0 || c.AuditStdout
}

// engineConfig maps the environment onto the library configuration.
func (c serverConfig) engineConfig() goIdentity.Config {
	cfg := goIdentity.DefaultConfig()

	cfg.JWT.Secret = []byte(c.JWTSecret)
	cfg.JWT.AccessTTL = c.JWTAccessTTL
	cfg.JWT.Issuer = c.JWTIssuer

	cfg.Password.Algorithm = c.PasswordAlgorithm
	cfg.Password.BcryptCost = c.BcryptCost

	cfg.OTP.Expire = c.OTPExpire
	cfg.OTP.Cooldown = c.OTPCooldown
	cfg.OTP.LockDuration = c.OTPLockDuration
	cfg.OTP.MaxAttempts = c.OTPMaxAttempts
	cfg.OTP.KeyPrefix = c.OTPKeyPrefix

	cfg.RateLimit.Enabled = c.RateLimitPerMinute > 0
	cfg.RateLimit.MaxRequests = c.RateLimitPerMinute
	cfg.RateLimit.Window = time.Minute

	cfg.Audit.Enabled = c.auditEnabled()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
