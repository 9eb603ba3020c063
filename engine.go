package goIdentity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/otp"
	"github.com/MrEthical07/goIdentity/internal/rate"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/password"
	"go.uber.org/zap"
)

// Engine defines the identity flows: registration, login, password reset,
// Google sign-in and profile access.
//
// Engine instances are intended to be configured during initialization and then treated as immutable.
type Engine struct {
	config       Config
	otp          *otp.Engine
	passwordHash password.Hasher
	jwtManager   *jwt.Manager
	directory    UserDirectory
	mailer       Mailer
	oauth        OAuthProvider
	principals   PrincipalResolver
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close flushes and stops the audit dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// AllowRequest consumes one request from the (scope, client) window. It
// returns an ErrRateLimited BusinessError and the time left in the window
// once the budget is spent, and ErrStoreUnavailable when Redis fails.
func (e *Engine) AllowRequest(ctx context.Context, scope, client string) (time.Duration, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	retryAfter, err := e.rateLimiter.Allow(ctx, scope, client)
	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{"scope": scope}
		})
		return retryAfter, ErrRateLimited.wrap(err)
	default:
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// OTPStatus reports the OTP state held for (email, purpose).
func (e *Engine) OTPStatus(ctx context.Context, email string, purpose Purpose) (OTPStatus, error) {
	if e == nil {
		return OTPStatus{}, ErrEngineNotReady
	}
	snap, err := e.otp.State(ctx, normalizeEmail(email), string(purpose))
	if err != nil {
		return OTPStatus{}, e.mapOTPError(err)
	}
	return OTPStatus{
		HasCode:       snap.HasCode,
		Attempts:      snap.Attempts,
		LockedUntil:   snap.LockedUntil,
		CooldownUntil: snap.CooldownUntil,
	}, nil
}

// ValidateToken parses an access token and returns its claims. Every failure
// is reported as ErrInvalidToken.
func (e *Engine) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	claims, err := e.jwtManager.Parse(token)
	e.metricObserve(MetricTokenValidateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricTokenInvalid)
		return nil, ErrInvalidToken.wrap(err)
	}

	out := &TokenClaims{
		Email:    claims.Subject,
		Role:     Role(claims.Role),
		Provider: AuthProvider(claims.Provider),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (e *Engine) issueToken(user *User) (*AuthResult, error) {
	token, err := e.jwtManager.Issue(user.Email, string(user.Role), string(user.Provider))
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: e.now().Add(e.jwtManager.TTL()),
	}, nil
}

// issueOTP generates a code for (email, purpose) and mails it.
func (e *Engine) issueOTP(ctx context.Context, email string, purpose Purpose) error {
	code, err := e.otp.Generate(ctx, email, string(purpose))
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrCooldownActive):
			e.metricInc(MetricOTPCooldown)
		case errors.Is(err, otp.ErrLocked):
			e.metricInc(MetricOTPLocked)
		}
		return e.mapOTPError(err)
	}
	e.metricInc(MetricOTPIssued)

	if err := e.mailer.SendOTPEmail(ctx, email, code, purpose); err != nil {
		e.metricInc(MetricMailFailure)
		e.logger.Warn("otp mail delivery failed",
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return ErrMailDelivery.wrap(err)
	}
	return nil
}

func (e *Engine) verifyOTP(ctx context.Context, email string, purpose Purpose, code string) error {
	start := time.Now()
	err := e.otp.Verify(ctx, email, string(purpose), code)
	e.metricObserve(MetricOTPVerifyLatency, time.Since(start))

	switch {
	case err == nil:
		e.metricInc(MetricOTPVerifySuccess)
		return nil
	case errors.Is(err, otp.ErrTooManyAttempts):
		e.metricInc(MetricOTPAttemptsExceeded)
		e.emitAudit(ctx, auditEventOTPLocked, false, "", email, purpose, ErrOTPTooManyAttempts, nil)
	case errors.Is(err, otp.ErrLocked):
		e.metricInc(MetricOTPLocked)
	case errors.Is(err, otp.ErrInvalidOrExpired):
		e.metricInc(MetricOTPVerifyFailure)
	}
	return e.mapOTPError(err)
}

func (e *Engine) mapOTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrLocked):
		return ErrOTPLocked.wrap(err)
	case errors.Is(err, otp.ErrCooldownActive):
		return ErrOTPCooldown.wrap(err)
	case errors.Is(err, otp.ErrTooManyAttempts):
		return ErrOTPTooManyAttempts.wrap(err)
	case errors.Is(err, otp.ErrInvalidOrExpired):
		return ErrInvalidOrExpiredOTP.wrap(err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// findUser looks up email, mapping a miss to ErrEmailNotFound.
func (e *Engine) findUser(ctx context.Context, email string) (*User, error) {
	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrEmailNotFound.wrap(err)
		}
		return nil, directoryError(err)
	}
	if user == nil {
		return nil, ErrEmailNotFound
	}
	return user, nil
}

func (e *Engine) saveUser(ctx context.Context, user *User) (*User, error) {
	saved, err := e.directory.Save(ctx, user)
	if err != nil {
		return nil, directoryError(err)
	}
	return saved, nil
}

func (e *Engine) hashPassword(plain string) (string, error) {
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return "", &ValidationError{Field: "password", Message: "password is too long"}
		}
		return "", err
	}
	return hash, nil
}

func directoryError(err error) error {
	var be *BusinessError
	if errors.As(err, &be) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
