// Package storage defines the key-value collaborators the security-control
// layer persists into: a durable per-origin store for the audit trail and a
// session-scoped store for the CSRF token.
//
// Both stores share the same [KV] contract so tests can substitute
// [Memory] for the Redis-backed store without touching callers.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the backing store is unreachable.
	ErrUnavailable = errors.New("storage unavailable")
)

// KV is a minimal string key-value store. Get reports whether the key was
// present; an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
