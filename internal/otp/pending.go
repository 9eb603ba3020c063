package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PendingRegistration is the registration payload held until the REGISTER
// code is confirmed.
type PendingRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// StagePending stores p under its email for Expire. A later call for the
// same email overwrites it.
func (e *Engine) StagePending(ctx context.Context, p PendingRegistration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := e.redis.Set(ctx, e.pendingKey(p.Email), data, e.cfg.Expire).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FetchPending returns the staged payload for email. found is false when
// nothing is staged or the entry expired.
func (e *Engine) FetchPending(ctx context.Context, email string) (PendingRegistration, bool, error) {
	var p PendingRegistration

	data, err := e.redis.Get(ctx, e.pendingKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return p, false, nil
		}
		return p, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return PendingRegistration{}, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return p, true, nil
}

// ClearPending deletes the staged payload for email. Missing entries are not an error.
func (e *Engine) ClearPending(ctx context.Context, email string) error {
	if err := e.redis.Del(ctx, e.pendingKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
