package goIdentity

import (
	"context"
	"strings"
)

// GetProfile returns the public profile of email.
func (e *Engine) GetProfile(ctx context.Context, email string) (*Profile, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	user, err := e.findUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricProfileRead)
	return profileOf(user), nil
}

// UpdateProfile applies the non-blank fields of in. A new password is hashed
// with the configured algorithm.
func (e *Engine) UpdateProfile(ctx context.Context, email string, in UpdateProfileInput) (*Profile, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	user, err := e.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 3)
	if strings.TrimSpace(in.Password) != "" {
		hash, err := e.hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changed = append(changed, "password")
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = name
		changed = append(changed, "fullName")
	}
	if avatar := strings.TrimSpace(in.Avatar); avatar != "" {
		user.Avatar = avatar
		changed = append(changed, "avatar")
	}
	if len(changed) == 0 {
		return profileOf(user), nil
	}

	user.UpdatedAt = e.now().UTC()
	saved, err := e.saveUser(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricProfileUpdated)
	e.emitAudit(ctx, auditEventProfileUpdated, true, saved.ID, email, "", nil, func() map[string]string {
		return map[string]string{"fields": strings.Join(changed, ",")}
	})
	return profileOf(saved), nil
}
