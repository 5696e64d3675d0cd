// Package identity is the sign-up / sign-in backend. Callers depend on
// Provider; LocalProvider implements it over the application database.
package identity

import (
	"context"
	"time"

	"techypad/internal/domain"
)

// Error is a provider-reported failure. Message is the provider's own wording
// and is what callers match on.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidCredentials = &Error{Code: "invalid_credentials", Message: "Invalid login credentials"}
	ErrEmailNotConfirmed  = &Error{Code: "email_not_confirmed", Message: "Email not confirmed"}
	ErrUserExists         = &Error{Code: "user_already_exists", Message: "User already registered"}
	ErrWeakPassword       = &Error{Code: "weak_password", Message: "Password should be at least 6 characters."}
	ErrInvalidEmail       = &Error{Code: "email_address_invalid", Message: "Unable to validate email address: invalid format"}
	ErrConfirmToken       = &Error{Code: "otp_expired", Message: "Email link is invalid or has expired"}
)

type Session struct {
	AccessToken string
	User        domain.User
	ExpiresAt   time.Time
}

type Profile struct {
	FullName string
}

// SignUpResult carries no Session when the account still needs e-mail confirmation.
type SignUpResult struct {
	User    domain.User
	Session *Session
}

type AuthEventType string

const (
	SignedIn  AuthEventType = "SIGNED_IN"
	SignedOut AuthEventType = "SIGNED_OUT"
)

type AuthEvent struct {
	Type        AuthEventType
	AccessToken string
	Session     *Session
}

type Provider interface {
	SignUp(ctx context.Context, email, password string, profile Profile) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// GetSession returns nil without error when the token names no live session.
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	ConfirmEmail(ctx context.Context, token string) (*Session, error)
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}
