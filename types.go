package goIdentity

import (
	"context"
	"time"
)

// Role is the single authorization attribute carried by a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AuthProvider records how a user signs in.
type AuthProvider string

const (
	ProviderNone   AuthProvider = "NONE"
	ProviderGoogle AuthProvider = "GOOGLE"
)

// Purpose partitions OTP state per use case.
type Purpose string

const (
	PurposeRegister       Purpose = "REGISTER"
	PurposeForgotPassword Purpose = "FORGOT_PASSWORD"
)

// DisplayName returns the human readable label used in emails.
func (p Purpose) DisplayName() string {
	switch p {
	case PurposeRegister:
		return "Register"
	case PurposeForgotPassword:
		return "Forgot Password"
	default:
		return string(p)
	}
}

// User is the durable account record owned by a UserDirectory.
//
// PasswordHash is empty for accounts created through an OAuth provider.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Avatar       string
	Phone        string
	Address      string
	Role         Role
	Provider     AuthProvider
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserDirectory is the durable user store.
//
// FindByEmail returns ErrUserNotFound when no user matches. Save inserts when
// the ID is empty and updates otherwise, returning the stored record; a unique
// email violation is reported as ErrEmailExists.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *User) (*User, error)
}

// Mailer delivers one-time codes.
type Mailer interface {
	SendOTPEmail(ctx context.Context, email, code string, purpose Purpose) error
}

// OAuthIdentity is the verified subset of an identity token.
type OAuthIdentity struct {
	Subject       string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// OAuthProvider exchanges an authorization code for an identity token and
// verifies it.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (idToken string, err error)
	VerifyIDToken(ctx context.Context, idToken string) (OAuthIdentity, error)
}

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
}

type VerifyRegisterInput struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordInput struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type GoogleLoginInput struct {
	Code string `json:"code"`
}

// UpdateProfileInput carries optional profile changes. Blank fields are left untouched.
type UpdateProfileInput struct {
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// AuthResult is returned by successful logins.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Profile is the public view of a user.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role"`
}

// TokenClaims is the validated content of an access token.
type TokenClaims struct {
	Email     string
	Role      Role
	Provider  AuthProvider
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// OTPStatus is a diagnostic view of OTP state for one (email, purpose).
type OTPStatus struct {
	HasCode       bool
	Attempts      int
	LockedUntil   time.Time
	CooldownUntil time.Time
}

func profileOf(u *User) *Profile {
	return &Profile{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Role:     u.Role,
	}
}
