package goIdentity

import (
	"context"
	"errors"
)

// Principal is the authenticated caller attached to a request by the guard.
type Principal struct {
	UserID   string
	Email    string
	Role     Role
	Provider AuthProvider
	Active   bool
}

// PrincipalResolver loads the principal behind a validated token subject.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, email string) (*Principal, error)
}

// DirectoryPrincipalResolver resolves principals from a UserDirectory.
type DirectoryPrincipalResolver struct {
	directory UserDirectory
}

// NewDirectoryPrincipalResolver returns a resolver backed by directory.
func NewDirectoryPrincipalResolver(directory UserDirectory) *DirectoryPrincipalResolver {
	return &DirectoryPrincipalResolver{directory: directory}
}

// ResolvePrincipal looks up email and returns ErrUserNotFound on a miss.
func (r *DirectoryPrincipalResolver) ResolvePrincipal(ctx context.Context, email string) (*Principal, error) {
	user, err := r.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &Principal{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Provider: user.Provider,
		Active:   user.Active,
	}, nil
}

// Authenticate validates token and resolves its subject to an active
// principal. A subject that no longer exists is reported as ErrInvalidToken
// and a disabled account as ErrAccountDisabled.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	p, err := e.principals.ResolvePrincipal(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricTokenInvalid)
			return nil, ErrInvalidToken.wrap(err)
		}
		return nil, directoryError(err)
	}
	if !p.Active {
		e.metricInc(MetricAccountDisabled)
		e.emitAudit(ctx, auditEventAccountDisabled, false, p.UserID, p.Email, "", ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}
	return p, nil
}
