package goIdentity

import (
	"context"
	"errors"
)

var (
	errOAuthNotConfigured = errors.New("oauth provider not configured")
	errNoUserReturned     = errors.New("directory save returned no user")
)

// GoogleLogin exchanges an authorization code, verifies the returned identity
// token and signs in the matching user, creating a GOOGLE account on first
// use. Every failure is reported as ErrOAuthLoginFailed carrying the cause.
func (e *Engine) GoogleLogin(ctx context.Context, code string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, created, err := e.googleUser(ctx, code)
	if err != nil {
		e.metricInc(MetricGoogleLoginFailure)
		e.emitAudit(ctx, auditEventGoogleLogin, false, "", "", "", err, nil)
		return nil, oauthLoginFailed(err)
	}

	result, err := e.issueToken(user)
	if err != nil {
		e.metricInc(MetricGoogleLoginFailure)
		return nil, oauthLoginFailed(err)
	}

	if created {
		e.metricInc(MetricGoogleUserCreated)
	}
	e.metricInc(MetricGoogleLoginSuccess)
	e.emitAudit(ctx, auditEventGoogleLogin, true, user.ID, user.Email, "", nil, func() map[string]string {
		if created {
			return map[string]string{"created": "true"}
		}
		return nil
	})
	return result, nil
}

func (e *Engine) googleUser(ctx context.Context, code string) (*User, bool, error) {
	if e.oauth == nil {
		return nil, false, errOAuthNotConfigured
	}

	idToken, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, false, ErrOAuthCodeRejected.wrap(err)
	}
	if idToken == "" {
		return nil, false, ErrOAuthExchangeFailed
	}

	identity, err := e.oauth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, false, ErrInvalidIdentityToken.wrap(err)
	}
	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, false, ErrInvalidIdentityToken
	}

	// A nil user without an error is a miss, as in findUser.
	user, err := e.directory.FindByEmail(ctx, email)
	switch {
	case err == nil && user != nil:
		return user, false, nil
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return nil, false, directoryError(err)
	}

	now := e.now().UTC()
	user, err = e.directory.Save(ctx, &User{
		Email:     email,
		FullName:  identity.Name,
		Avatar:    identity.Picture,
		Role:      RoleUser,
		Provider:  ProviderGoogle,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, ErrEmailExists) {
		// Lost a race with a concurrent first login.
		user, err = e.findUser(ctx, email)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, directoryError(err)
	}
	if user == nil {
		return nil, false, directoryError(errNoUserReturned)
	}
	return user, true, nil
}
