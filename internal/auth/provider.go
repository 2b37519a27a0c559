// Package auth is the client side of the hosted authentication service.
package auth

import (
	"context"
	"errors"
	"fmt"

	"staybook/internal/domain"
)

var (
	// ErrNoSession is returned by calls that need a signed-in user.
	ErrNoSession = errors.New("no active session")
)

// Event names the kind of session change delivered to listeners.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

// Listener receives session changes. session is nil after sign-out.
type Listener func(event Event, session *domain.Session)

// SignUpParams are the fields sent when creating an account.
type SignUpParams struct {
	Email    string
	Password string
	Metadata domain.UserMetadata
}

// SignUpResult is the outcome of a sign-up. Session is nil when the account
// still has to be confirmed with the emailed one-time code.
type SignUpResult struct {
	User    domain.User
	Session *domain.Session
}

// NeedsVerification reports whether the account awaits OTP confirmation.
func (r SignUpResult) NeedsVerification() bool {
	return r.Session == nil
}

// Provider is the set of auth operations the app consumes.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	VerifyOTP(ctx context.Context, email, token string) (*domain.Session, error)
	ResendOTP(ctx context.Context, email string) error
	SignOut(ctx context.Context) error

	// Session returns the current session, or nil when signed out.
	Session(ctx context.Context) (*domain.Session, error)
	User(ctx context.Context) (*domain.User, error)
	UpdateUser(ctx context.Context, metadata domain.UserMetadata) (*domain.User, error)
	UpdatePassword(ctx context.Context, password string) error

	// Subscribe registers l and returns a function that removes it.
	Subscribe(l Listener) (unsubscribe func())
}

// APIError is an error answered by the auth service. Message is meant for the user.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("auth: %s (%d)", e.Message, e.Status)
}

// UserMessage extracts the human-readable message of err for display.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
