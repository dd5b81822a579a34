// Package memory is an in-process implementation of the
// [authguard.Provider] collaborator, for tests, demos, and offline
// development. Accounts live in a map, credentials are argon2id hashes,
// and sessions are signed HS256 JWTs, the same shape a hosted provider
// hands back.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/postureboard/authguard"
	"github.com/postureboard/authguard/password"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. Callers must not forward this text to end users.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned by SignUp for an already-registered
	// email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNoActiveSession is returned by UpdatePassword when nobody is
	// signed in.
	ErrNoActiveSession = errors.New("no active session")
)

// Config tunes the in-process provider.
type Config struct {
	// SigningKey signs session JWTs. Required.
	SigningKey []byte
	// SessionTTL bounds issued sessions. Defaults to one hour.
	SessionTTL time.Duration
	// Argon2 parameters for credential hashes. Defaults to
	// [password.DefaultArgon2Config].
	Argon2 password.Argon2Config
	// EventBuffer sizes the change-notification channel. Defaults to 16.
	EventBuffer int
}

type account struct {
	id           string
	email        string
	passwordHash string
}

// Provider implements [authguard.Provider] in process memory.
type Provider struct {
	cfg    Config
	hasher *password.Argon2

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	current  *authguard.Session

	failNextSignIn error

	events chan authguard.ChangeEvent
}

// New creates an empty provider.
func New(cfg Config) (*Provider, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("memory provider: signing key required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.Argon2 == (password.Argon2Config{}) {
		cfg.Argon2 = password.DefaultArgon2Config()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}

	hasher, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	return &Provider{
		cfg:      cfg,
		hasher:   hasher,
		accounts: make(map[string]*account),
		events:   make(chan authguard.ChangeEvent, cfg.EventBuffer),
	}, nil
}

// Seed registers an account without emitting events or creating a
// session. Returns the new user's ID.
func (p *Provider) Seed(email, plaintext string) (string, error) {
	hash, err := p.hasher.Hash(plaintext)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return "", ErrDuplicateEmail
	}
	id := uuid.NewString()
	p.accounts[email] = &account{
		id:           id,
		email:        email,
		passwordHash: hash,
	}
	return id, nil
}

// FailNextSignIn makes the next SignInWithPassword call fail with err,
// regardless of credentials. Test hook.
func (p *Provider) FailNextSignIn(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failNextSignIn = err
}

// SignInWithPassword verifies credentials, installs a fresh session, and
// emits a SignedIn notification.
func (p *Provider) SignInWithPassword(_ context.Context, email, plaintext string) (*authguard.Session, error) {
	p.mu.Lock()

	if err := p.failNextSignIn; err != nil {
		p.failNextSignIn = nil
		p.mu.Unlock()
		return nil, err
	}

	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := p.hasher.Verify(plaintext, acct.passwordHash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	session, err := p.issueSession(acct)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.emit(authguard.ChangeEvent{Kind: authguard.SignedIn, Session: session})
	return session, nil
}

// SignUp registers a new account and signs it in.
func (p *Provider) SignUp(_ context.Context, email, plaintext string) (*authguard.Session, error) {
	hash, err := p.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return nil, ErrDuplicateEmail
	}
	acct := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hash,
	}
	p.accounts[email] = acct
	p.mu.Unlock()

	session, err := p.issueSession(acct)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.emit(authguard.ChangeEvent{Kind: authguard.SignedIn, Session: session})
	return session, nil
}

// SignOut clears the current session and emits a SignedOut notification.
// Signing out with no session is a no-op.
func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	had := p.current != nil
	p.current = nil
	p.mu.Unlock()

	if had {
		p.emit(authguard.ChangeEvent{Kind: authguard.SignedOut})
	}
	return nil
}

// CurrentSession returns the active session, or nil when signed out.
func (p *Provider) CurrentSession(context.Context) (*authguard.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, nil
	}
	session := *p.current
	return &session, nil
}

// UpdatePassword re-hashes the signed-in user's credential.
func (p *Provider) UpdatePassword(_ context.Context, newPassword string) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return ErrNoActiveSession
	}

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[current.User.Email]
	if !ok {
		return ErrNoActiveSession
	}
	acct.passwordHash = hash
	return nil
}

// Changes returns the session-change notification stream.
func (p *Provider) Changes() <-chan authguard.ChangeEvent {
	return p.events
}

func (p *Provider) issueSession(acct *account) (*authguard.Session, error) {
	expiresAt := time.Now().Add(p.cfg.SessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   acct.id,
		"email": acct.email,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString(p.cfg.SigningKey)
	if err != nil {
		return nil, err
	}

	return &authguard.Session{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User: authguard.User{
			ID:    acct.id,
			Email: acct.email,
		},
	}, nil
}

// emit never blocks: if nobody is draining the stream, notifications are
// shed the way a disconnected subscriber would miss them.
func (p *Provider) emit(event authguard.ChangeEvent) {
	select {
	case p.events <- event:
	default:
	}
}
