package otp

import "errors"

var (
	// ErrLocked is returned while a lock written after too many failures is active.
	ErrLocked = errors.New("otp locked")
	// ErrCooldownActive is returned when a code was requested within the cooldown window.
	ErrCooldownActive = errors.New("otp cooldown active")
	// ErrTooManyAttempts is returned by the failure that reaches the attempt limit.
	ErrTooManyAttempts = errors.New("otp attempts exceeded")
	// ErrInvalidOrExpired is returned when the candidate does not match a live code.
	ErrInvalidOrExpired = errors.New("otp invalid or expired")
	// ErrCorruptRecord is returned when a stored pending registration cannot be decoded.
	ErrCorruptRecord = errors.New("otp corrupt record")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("otp redis unavailable")
)
