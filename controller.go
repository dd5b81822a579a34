package authguard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/postureboard/authguard/audit"
	"github.com/postureboard/authguard/csrf"
	"github.com/postureboard/authguard/password"
	"github.com/postureboard/authguard/ratelimit"
)

// Rate-limited action names. Each action has its own fixed-window budget.
const (
	actionLogin  = "login"
	actionSignup = "signup"
)

// Controller orchestrates login and logout against the external auth
// provider: it consults the rate limiter before the provider is contacted,
// records every security-relevant step in the audit trail, and mirrors the
// provider's session-change notifications into reactive [State].
//
// All methods are safe for concurrent use, but callers should serialize
// submissions at the form (disable the submit control); a second Login
// does not wait for an in-flight one.
type Controller struct {
	config     Config
	provider   Provider
	limiter    *ratelimit.Limiter
	trail      *audit.Store      // nil when auditing disabled
	dispatcher *audit.Dispatcher // nil when auditing disabled
	csrf       *csrf.Manager     // nil when no CSRF manager attached
	log        zerolog.Logger

	mu     sync.Mutex
	state  State
	closed bool

	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
}

// prime loads the provider's existing session so route guards don't flash
// an unauthenticated state on startup.
func (c *Controller) prime(ctx context.Context) {
	session, err := c.provider.CurrentSession(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("authguard: current session lookup failed")
	}

	c.mu.Lock()
	c.applySessionLocked(session)
	c.state.Loading = false
	c.mu.Unlock()
}

// run consumes the provider's session-change stream until Close or until
// the provider closes the stream.
func (c *Controller) run() {
	defer close(c.loopDone)

	changes := c.provider.Changes()
	for {
		select {
		case event, ok := <-changes:
			if !ok {
				return
			}
			c.handleChange(event)
		case <-c.done:
			return
		}
	}
}

func (c *Controller) handleChange(event ChangeEvent) {
	c.mu.Lock()
	c.applySessionLocked(event.Session)
	c.state.Loading = false
	c.mu.Unlock()

	// Provider-confirmed transitions get their own audit entries, on top
	// of the client-initiated ones Login/Logout write. Both sides are
	// recorded on purpose; see the trail's event pairs.
	switch event.Kind {
	case SignedIn:
		c.auditEvent(context.Background(), audit.EventLoginSuccess, eventUserID(event), map[string]any{
			"method": "email_password",
		})
	case SignedOut:
		c.auditEvent(context.Background(), audit.EventLogout, eventUserID(event), nil)
	}
}

func (c *Controller) applySessionLocked(session *Session) {
	c.state.Session = session
	if session != nil {
		user := session.User
		c.state.User = &user
	} else {
		c.state.User = nil
	}
}

func eventUserID(event ChangeEvent) string {
	if event.Session == nil {
		return ""
	}
	return event.Session.User.ID
}

// Login authenticates email/password against the provider.
//
// The rate limiter is consulted first: an exhausted budget locks the
// controller, records a rate_limit_exceeded entry, and fails without the
// provider ever being contacted. Otherwise a login_attempt entry is
// recorded, the provider is called, and a rejection increments the
// attempt counter, records a login_failure entry carrying the provider's
// raw error, and surfaces only the generic [ErrAuthFailed].
//
// On success the attempt counter and lock are cleared; the session itself
// arrives asynchronously through the provider's change stream, not from
// this call. If a CSRF manager is attached, a fresh token is issued after
// every attempt regardless of outcome.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if c.isClosed() {
		return ErrControllerClosed
	}
	defer c.reissueCSRF(ctx)

	if !c.limiter.Allow(actionLogin, c.config.RateLimit.LoginLimit, c.config.RateLimit.LoginWindow) {
		c.mu.Lock()
		c.state.Locked = true
		c.mu.Unlock()

		c.auditEvent(ctx, audit.EventRateLimitExceeded, "", map[string]any{
			"action": actionLogin,
			"email":  email,
		})
		return ErrRateLimited
	}

	c.auditEvent(ctx, audit.EventLoginAttempt, "", map[string]any{
		"email": email,
	})

	if _, err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
		c.mu.Lock()
		c.state.LoginAttempts++
		c.mu.Unlock()

		c.auditEvent(ctx, audit.EventLoginFailure, "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return ErrAuthFailed
	}

	c.mu.Lock()
	c.state.LoginAttempts = 0
	c.state.Locked = false
	c.mu.Unlock()

	return nil
}

// Signup registers a new account. The password policy is applied before
// anything else; a weak password is rejected locally with the failed rule
// messages wrapped around [ErrPasswordPolicy]. The rest mirrors Login:
// limiter, audit, provider call, generic failure, CSRF re-issue.
func (c *Controller) Signup(ctx context.Context, email, candidate string) error {
	if c.isClosed() {
		return ErrControllerClosed
	}

	if assessment := password.Evaluate(candidate); !assessment.Valid {
		return fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(assessment.Errors, "; "))
	}

	defer c.reissueCSRF(ctx)

	if !c.limiter.Allow(actionSignup, c.config.RateLimit.SignupLimit, c.config.RateLimit.SignupWindow) {
		c.auditEvent(ctx, audit.EventRateLimitExceeded, "", map[string]any{
			"action": actionSignup,
			"email":  email,
		})
		return ErrRateLimited
	}

	c.auditEvent(ctx, audit.EventLoginAttempt, "", map[string]any{
		"email":  email,
		"action": actionSignup,
	})

	if _, err := c.provider.SignUp(ctx, email, candidate); err != nil {
		c.auditEvent(ctx, audit.EventLoginFailure, "", map[string]any{
			"email":  email,
			"action": actionSignup,
			"error":  err.Error(),
		})
		return ErrAuthFailed
	}

	return nil
}

// UpdatePassword changes the authenticated user's password after applying
// the strength policy. The change is recorded as a password_change entry;
// provider rejections surface as the generic [ErrAuthFailed].
func (c *Controller) UpdatePassword(ctx context.Context, candidate string) error {
	if c.isClosed() {
		return ErrControllerClosed
	}

	if assessment := password.Evaluate(candidate); !assessment.Valid {
		return fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(assessment.Errors, "; "))
	}

	userID := c.currentUserID()
	if err := c.provider.UpdatePassword(ctx, candidate); err != nil {
		c.auditEvent(ctx, audit.EventSecurityViolation, userID, map[string]any{
			"action": "password_change",
			"error":  err.Error(),
		})
		return ErrAuthFailed
	}

	c.auditEvent(ctx, audit.EventPasswordChange, userID, nil)
	return nil
}

// Logout records a logout entry and signs out of the provider. It never
// fails from the caller's perspective: there is no recovery action a user
// could take, so provider errors are logged and swallowed.
func (c *Controller) Logout(ctx context.Context) {
	if c.isClosed() {
		return
	}

	c.auditEvent(ctx, audit.EventLogout, c.currentUserID(), nil)

	if err := c.provider.SignOut(ctx); err != nil {
		c.log.Warn().Err(err).Msg("authguard: provider sign-out failed")
	}
}

// State returns a snapshot of the reactive auth state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state
	if c.state.User != nil {
		user := *c.state.User
		snapshot.User = &user
	}
	if c.state.Session != nil {
		session := *c.state.Session
		snapshot.Session = &session
	}
	return snapshot
}

// AuditTrail returns the persisted audit trail, oldest first. Empty when
// auditing is disabled.
func (c *Controller) AuditTrail(ctx context.Context) []audit.Entry {
	if c.trail == nil {
		return nil
	}
	return c.trail.Read(ctx)
}

// AuditDropped reports audit entries shed under backpressure.
func (c *Controller) AuditDropped() uint64 {
	return c.dispatcher.Dropped()
}

// Close stops the session-change subscription and drains the audit
// pipeline. Idempotent.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.done)
		<-c.loopDone
		c.dispatcher.Close()
	})
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Controller) currentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.User == nil {
		return ""
	}
	return c.state.User.ID
}

func (c *Controller) auditEvent(ctx context.Context, eventType, userID string, details map[string]any) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Emit(ctx, audit.Entry{
		EventType: eventType,
		UserID:    userID,
		Details:   details,
	})
}

func (c *Controller) reissueCSRF(ctx context.Context) {
	if c.csrf == nil {
		return
	}
	if _, err := c.csrf.Issue(ctx); err != nil {
		c.log.Warn().Err(err).Msg("authguard: csrf reissue failed")
	}
}
