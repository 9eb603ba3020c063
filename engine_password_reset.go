package goIdentity

import (
	"context"
	"errors"
)

// ForgotPassword mails a FORGOT_PASSWORD code to a password account.
// Accounts created through Google are rejected with ErrUnsupportedProvider.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.metricInc(MetricPasswordResetRequest)
	email = normalizeEmail(email)

	err := e.forgotPassword(ctx, email)
	e.emitAudit(ctx, auditEventPasswordResetRequest, err == nil, "", email, PurposeForgotPassword, err, nil)
	return err
}

func (e *Engine) forgotPassword(ctx context.Context, email string) error {
	user, err := e.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := e.requirePasswordAccount(user); err != nil {
		return err
	}
	return e.issueOTP(ctx, email, PurposeForgotPassword)
}

// VerifyForgotPassword confirms a FORGOT_PASSWORD code and stores the new password.
func (e *Engine) VerifyForgotPassword(ctx context.Context, in VerifyForgotPasswordInput) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email := normalizeEmail(in.Email)

	userID, err := e.verifyForgotPassword(ctx, email, in)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedProvider) {
			e.metricInc(MetricPasswordResetFailure)
		}
		e.emitAudit(ctx, auditEventPasswordResetComplete, false, userID, email, PurposeForgotPassword, err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetComplete, true, userID, email, PurposeForgotPassword, nil, nil)
	return nil
}

func (e *Engine) verifyForgotPassword(ctx context.Context, email string, in VerifyForgotPasswordInput) (string, error) {
	if in.NewPassword != in.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	user, err := e.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if err := e.requirePasswordAccount(user); err != nil {
		return user.ID, err
	}

	if err := e.verifyOTP(ctx, email, PurposeForgotPassword, in.OTP); err != nil {
		return user.ID, err
	}

	hash, err := e.hashPassword(in.NewPassword)
	if err != nil {
		return user.ID, err
	}
	user.PasswordHash = hash
	user.UpdatedAt = e.now().UTC()
	if _, err := e.saveUser(ctx, user); err != nil {
		return user.ID, err
	}
	return user.ID, nil
}

func (e *Engine) requirePasswordAccount(user *User) error {
	if user.Provider != ProviderNone {
		e.metricInc(MetricPasswordResetUnsupported)
		return ErrUnsupportedProvider
	}
	return nil
}
