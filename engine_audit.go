package goIdentity

import (
	"context"
	"errors"
	"strings"

	internalaudit "github.com/MrEthical07/goIdentity/internal/audit"
)

const (
	auditEventRegisterRequested     = "register_requested"
	auditEventRegisterVerified      = "register_verified"
	auditEventRegisterFailure       = "register_failure"
	auditEventOTPLocked             = "otp_locked"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetComplete = "password_reset_complete"
	auditEventGoogleLogin           = "google_login"
	auditEventProfileUpdated        = "profile_updated"
	auditEventAccountDisabled       = "account_disabled"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

const (
	auditErrUnavailable = "backend_unavailable"
	auditErrInternal    = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	purpose Purpose,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	ts := e.now().UTC()
	event := AuditEvent{
		ID:        internalaudit.NewEventID(ts),
		Timestamp: ts,
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Purpose:   string(purpose),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	event.Error = auditErrorCode(err)

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var be *BusinessError
	switch {
	case errors.As(err, &be):
		return strings.ToLower(be.Code)
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrDirectoryUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
