package authguard

import (
	"context"
	"time"
)

// User is the provider's account record as seen by this layer.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated provider session. AccessToken is opaque to
// this layer; hosted providers typically issue a JWT.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// ChangeKind tags a session-change notification from the provider.
type ChangeKind uint8

const (
	// InitialSession is delivered once when the subscription starts,
	// carrying whatever session already exists (possibly none).
	InitialSession ChangeKind = iota
	// SignedIn is delivered after the provider confirms a sign-in.
	SignedIn
	// SignedOut is delivered after the provider confirms a sign-out.
	SignedOut
	// TokenRefreshed is delivered when the provider rotates the session
	// token without a user-visible transition.
	TokenRefreshed
)

// String returns the wire-style name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case InitialSession:
		return "INITIAL_SESSION"
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent is one session-change notification. Session is nil for
// SignedOut and for an InitialSession with no existing session.
type ChangeEvent struct {
	Kind    ChangeKind
	Session *Session
}

// Provider is the external managed auth service. Implementations are
// remote (hosted backend-as-a-service) or in-process
// (provider/memory) for tests and demos.
//
// Changes delivers session-change notifications on the provider's own
// schedule; they are not ordered relative to an in-flight call's return.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	Changes() <-chan ChangeEvent
}

// State is a snapshot of the controller's reactive auth state.
//
// LoginAttempts counts consecutive provider-rejected logins since the last
// success. Locked is set only by rate-limit exhaustion and cleared only by
// a successful login.
type State struct {
	User          *User
	Session       *Session
	Loading       bool
	LoginAttempts int
	Locked        bool
}
