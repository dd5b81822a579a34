// Package csrf issues and validates the per-session anti-forgery token
// embedded in login and signup forms.
//
// The token is a random identifier compared in plaintext, not a signed
// capability: it proves the submission came from a form the session itself
// rendered, nothing more. It lives in session-scoped storage, so closing
// the session invalidates it implicitly, and the auth controller re-issues
// it after every submission attempt so each token covers exactly one
// submission.
package csrf

import (
	"context"

	"github.com/google/uuid"
	"github.com/postureboard/authguard/storage"
)

// DefaultStorageKey is the session-storage key the token is stored under.
const DefaultStorageKey = "csrf_token"

// Manager owns the single active token for a session.
type Manager struct {
	kv  storage.KV
	key string
}

// NewManager creates a Manager over a session-scoped store. key falls back
// to [DefaultStorageKey] when empty.
func NewManager(kv storage.KV, key string) *Manager {
	if key == "" {
		key = DefaultStorageKey
	}
	return &Manager{
		kv:  kv,
		key: key,
	}
}

// Issue generates a fresh random token, overwrites any stored token, and
// returns it. The previous token is invalid from this point on.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	token := uuid.NewString()
	if err := m.kv.Set(ctx, m.key, token); err != nil {
		return "", err
	}
	return token, nil
}

// Current returns the stored token without mutating it, and whether one
// exists.
func (m *Manager) Current(ctx context.Context) (string, bool) {
	token, ok, err := m.kv.Get(ctx, m.key)
	if err != nil || !ok || token == "" {
		return "", false
	}
	return token, true
}

// Validate reports whether candidate equals the currently stored token.
// It is false when no token has been issued.
func (m *Manager) Validate(ctx context.Context, candidate string) bool {
	current, ok := m.Current(ctx)
	if !ok {
		return false
	}
	return candidate == current
}
