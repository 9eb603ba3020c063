package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/internal/otp"
	"go.uber.org/zap"
)

// Register stages a pending registration and mails a REGISTER code. Calling
// it again before verification overwrites the staged payload, subject to the
// OTP cooldown.
func (e *Engine) Register(ctx context.Context, in RegisterInput) error {
	if e == nil {
		return ErrEngineNotReady
	}
	e.metricInc(MetricRegisterRequest)
	email := normalizeEmail(in.Email)

	err := e.register(ctx, email, in)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(MetricRegisterDuplicate)
		} else {
			e.metricInc(MetricRegisterFailure)
		}
	}
	e.emitAudit(ctx, auditEventRegisterRequested, err == nil, "", email, PurposeRegister, err, nil)
	return err
}

func (e *Engine) register(ctx context.Context, email string, in RegisterInput) error {
	exists, err := e.directory.ExistsByEmail(ctx, email)
	if err != nil {
		return directoryError(err)
	}
	if exists {
		return ErrEmailExists
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if err := e.otp.StagePending(ctx, otp.PendingRegistration{
		Email:    email,
		Password: in.Password,
		FullName: in.FullName,
	}); err != nil {
		return e.mapOTPError(err)
	}

	return e.issueOTP(ctx, email, PurposeRegister)
}

// VerifyRegister confirms a REGISTER code and commits the staged user.
func (e *Engine) VerifyRegister(ctx context.Context, in VerifyRegisterInput) (*Profile, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	email := normalizeEmail(in.Email)

	user, err := e.verifyRegister(ctx, email, in.OTP)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(MetricRegisterDuplicate)
		} else {
			e.metricInc(MetricRegisterFailure)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, PurposeRegister, err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterVerified, true, user.ID, email, PurposeRegister, nil, nil)
	return profileOf(user), nil
}

func (e *Engine) verifyRegister(ctx context.Context, email, code string) (*User, error) {
	if err := e.verifyOTP(ctx, email, PurposeRegister, code); err != nil {
		return nil, err
	}

	pending, found, err := e.otp.FetchPending(ctx, email)
	if err != nil {
		if errors.Is(err, otp.ErrCorruptRecord) {
			return nil, ErrRegistrationExpired.wrap(err)
		}
		return nil, e.mapOTPError(err)
	}
	if !found {
		return nil, ErrRegistrationExpired
	}

	exists, err := e.directory.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, directoryError(err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := e.hashPassword(pending.Password)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	user, err := e.saveUser(ctx, &User{
		Email:        email,
		PasswordHash: hash,
		FullName:     pending.FullName,
		Role:         RoleUser,
		Provider:     ProviderNone,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if err := e.otp.ClearPending(ctx, email); err != nil {
		e.logger.Warn("pending registration not cleared", zap.Error(err))
	}
	return user, nil
}
