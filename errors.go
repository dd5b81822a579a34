package authguard

import "errors"

var (
	// ErrRateLimited is returned when the login or signup attempt budget
	// is exhausted. The message is generic and safe to show to users.
	ErrRateLimited = errors.New("too many attempts, please try again later")
	// ErrAuthFailed is the fixed generic failure returned whenever the
	// provider rejects a credential operation. The provider's raw error
	// text is retained in the audit trail only; it must never reach the
	// UI, where it could leak account existence or provider internals.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrCSRFMismatch is returned when a form submission carries a token
	// that does not match the session's current token. The submission is
	// rejected before any provider call.
	ErrCSRFMismatch = errors.New("security validation failed")
	// ErrPasswordPolicy is returned when a candidate password fails the
	// strength policy, wrapped together with the failed rule messages.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrControllerClosed is returned by operations invoked after Close.
	ErrControllerClosed = errors.New("auth controller closed")
	// ErrNotReady is returned by Build when a required dependency is
	// missing.
	ErrNotReady = errors.New("auth controller not initialized")
)
