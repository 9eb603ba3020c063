package goIdentity

import (
	"context"

	"go.uber.org/zap"
)

// Login checks email and password and issues an access token.
func (e *Engine) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	email := normalizeEmail(in.Email)

	user, err := e.findUser(ctx, email)
	if err != nil {
		e.loginFailed(ctx, email, err)
		return nil, err
	}

	ok, err := e.passwordHash.Verify(in.Password, user.PasswordHash)
	if err != nil || !ok {
		e.loginFailed(ctx, email, ErrWrongPassword)
		return nil, ErrWrongPassword
	}

	if needs, err := e.passwordHash.NeedsRehash(user.PasswordHash); err == nil && needs {
		e.rehash(ctx, user, in.Password)
	}

	result, err := e.issueToken(user)
	if err != nil {
		e.loginFailed(ctx, email, err)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, "", nil, nil)
	return result, nil
}

func (e *Engine) loginFailed(ctx context.Context, email string, err error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", email, "", err, nil)
}

// rehash upgrades a stored hash to the current parameters. Failures keep the old hash.
func (e *Engine) rehash(ctx context.Context, user *User, plain string) {
	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.Error(err))
		return
	}
	updated := *user
	updated.PasswordHash = hash
	updated.UpdatedAt = e.now().UTC()
	if _, err := e.directory.Save(ctx, &updated); err != nil {
		e.logger.Warn("password rehash not persisted", zap.Error(err))
	}
}
