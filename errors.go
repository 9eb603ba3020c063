package goIdentity

import (
	"errors"
	"net/http"
)

// BusinessError is the carrier for every domain failure. Code is stable and
// machine readable, Message is safe to show to clients and StatusCode is the
// HTTP status the failure maps to.
//
// errors.Is matches on Code, so a wrapped or re-messaged instance still
// matches its sentinel.
type BusinessError struct {
	Code       string
	Message    string
	StatusCode int
	cause      error
}

func (e *BusinessError) Error() string {
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.cause
}

func (e *BusinessError) Is(target error) bool {
	t, ok := target.(*BusinessError)
	return ok && t.Code == e.Code
}

func (e *BusinessError) wrap(cause error) *BusinessError {
	c := *e
	c.cause = cause
	return &c
}

func newBusinessError(code, message string, status int) *BusinessError {
	return &BusinessError{Code: code, Message: message, StatusCode: status}
}

var (
	ErrEmailExists          = newBusinessError("EMAIL_EXISTS", "email is already registered", http.StatusBadRequest)
	ErrPasswordMismatch     = newBusinessError("PASSWORD_MISMATCH", "passwords do not match", http.StatusBadRequest)
	ErrOTPLocked            = newBusinessError("OTP_LOCKED", "too many failed attempts, try again later", http.StatusForbidden)
	ErrOTPCooldown          = newBusinessError("OTP_COOLDOWN", "please wait before requesting another code", http.StatusBadRequest)
	ErrOTPTooManyAttempts   = newBusinessError("OTP_TOO_MANY_ATTEMPTS", "too many failed attempts, verification is locked", http.StatusForbidden)
	ErrInvalidOrExpiredOTP  = newBusinessError("OTP_INVALID", "invalid or expired code", http.StatusBadRequest)
	ErrRegistrationExpired  = newBusinessError("REGISTRATION_EXPIRED", "registration request expired, please register again", http.StatusBadRequest)
	ErrEmailNotFound        = newBusinessError("EMAIL_NOT_FOUND", "email is not registered", http.StatusNotFound)
	ErrWrongPassword        = newBusinessError("WRONG_PASSWORD", "incorrect password", http.StatusBadRequest)
	ErrUnsupportedProvider  = newBusinessError("UNSUPPORTED_PROVIDER", "operation is not available for this sign-in provider", http.StatusBadRequest)
	ErrOAuthCodeRejected    = newBusinessError("OAUTH_CODE_REJECTED", "authorization code was rejected by the provider", http.StatusUnauthorized)
	ErrOAuthExchangeFailed  = newBusinessError("OAUTH_EXCHANGE_FAILED", "authorization code exchange returned no identity token", http.StatusBadGateway)
	ErrInvalidIdentityToken = newBusinessError("INVALID_IDENTITY_TOKEN", "identity token rejected", http.StatusUnauthorized)
	ErrOAuthLoginFailed     = newBusinessError("OAUTH_LOGIN_FAILED", "google login failed", http.StatusInternalServerError)
	ErrInvalidToken         = newBusinessError("INVALID_TOKEN", "invalid or expired token", http.StatusUnauthorized)
	ErrAccountDisabled      = newBusinessError("ACCOUNT_DISABLED", "account is disabled", http.StatusForbidden)
	ErrMailDelivery         = newBusinessError("MAIL_DELIVERY_FAILED", "failed to send email", http.StatusInternalServerError)
	ErrRateLimited          = newBusinessError("RATE_LIMITED", "too many requests", http.StatusTooManyRequests)
)

var (
	// ErrUserNotFound is returned by UserDirectory implementations when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps ephemeral store failures.
	ErrStoreUnavailable = errors.New("ephemeral store unavailable")
	// ErrDirectoryUnavailable wraps user directory failures.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status err maps to: the BusinessError status,
// 400 for validation failures and 500 otherwise.
func StatusCode(err error) int {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.StatusCode
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-safe message for err. Internal failures
// collapse to a generic message.
func PublicMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return "internal server error"
}

// oauthLoginFailed wraps any Google sign-in failure, carrying the cause's
// public message.
func oauthLoginFailed(cause error) *BusinessError {
	out := ErrOAuthLoginFailed.wrap(cause)
	var be *BusinessError
	if errors.As(cause, &be) {
		out.Message = ErrOAuthLoginFailed.Message + ": " + be.Message
	} else {
		out.Message = ErrOAuthLoginFailed.Message + ": unexpected error"
	}
	return out
}
