// Command goidentity-server runs the identity HTTP API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file in the working directory. See serverConfig for every variable.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/audit/kafka"
	"github.com/MrEthical07/goIdentity/directory/memory"
	"github.com/MrEthical07/goIdentity/directory/postgres"
	"github.com/MrEthical07/goIdentity/directory/sqlite"
	"github.com/MrEthical07/goIdentity/httpapi"
	"github.com/MrEthical07/goIdentity/mail"
	promexport "github.com/MrEthical07/goIdentity/metrics/export/prometheus"
	"github.com/MrEthical07/goIdentity/oauth/google"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "goidentity-server: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goidentity-server: init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" || format == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// closer is run in reverse order on shutdown.
type closer func() error

func run(ctx context.Context, cfg serverConfig, logger *zap.Logger) error {
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("shutdown step failed", zap.Error(err))
			}
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	closers = append(closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	directory, closeDirectory, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeDirectory)

	engineCfg := cfg.engineConfig()
	mailer, err := newMailer(cfg, engineCfg.OTP.Expire, logger)
	if err != nil {
		return err
	}

	builder := goIdentity.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserDirectory(directory).
		WithMailer(mailer).
		WithLogger(logger)

	if cfg.GoogleClientID != "" {
		provider, err := google.New(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Timeout:      10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("google provider: %w", err)
		}
		builder = builder.WithOAuthProvider(provider)
	}

	if cfg.auditEnabled() {
		var sinks goIdentity.MultiSink
		if len(cfg.KafkaBrokers) > 0 {
			sink, err := kafka.NewSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic, logger)
			if err != nil {
				return fmt.Errorf("kafka audit sink: %w", err)
			}
			closers = append(closers, sink.Close)
			sinks = append(sinks, sink)
		}
		if cfg.AuditStdout {
			sinks = append(sinks, goIdentity.NewJSONWriterSink(os.Stdout))
		}
		builder = builder.WithAuditSink(sinks)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	closers = append(closers, func() error {
		engine.Close()
		return nil
	})

	handler := httpapi.NewRouter(engine, logger, httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler: promexport.Handler(promexport.NewCollector(engine)),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("directory", cfg.DirectoryDriver),
			zap.String("mail", cfg.MailDriver),
			zap.Bool("google", cfg.GoogleClientID != ""),
			zap.Bool("audit", cfg.auditEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openDirectory(ctx context.Context, cfg serverConfig) (goIdentity.UserDirectory, closer, error) {
	switch cfg.DirectoryDriver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return store, func() error { pool.Close(); return nil }, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		return store, store.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

func newMailer(cfg serverConfig, expire time.Duration, logger *zap.Logger) (goIdentity.Mailer, error) {
	renderer := mail.NewRenderer(expire)
	if cfg.MailDriver == "smtp" {
		sender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			ImplicitTLS: cfg.SMTPPort == 465,
			Timeout:     10 * time.Second,
		}, renderer)
		if err != nil {
			return nil, fmt.Errorf("smtp mailer: %w", err)
		}
		return sender, nil
	}
	return mail.NewLogSender(logger, renderer), nil
}
