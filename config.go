package authguard

import (
	"errors"
	"time"
)

// Config defines the controller's tuning knobs. Configure once during
// initialization and treat as immutable afterwards.
type Config struct {
	RateLimit RateLimitConfig
	Audit     AuditConfig
	CSRF      CSRFConfig
}

// RateLimitConfig bounds login and signup attempts. Windows are fixed and
// epoch-aligned, enforced per process only.
type RateLimitConfig struct {
	LoginLimit   int
	LoginWindow  time.Duration
	SignupLimit  int
	SignupWindow time.Duration
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled    bool
	StorageKey string
	MaxEntries int
	UserAgent  string
	// LookupURL is the best-effort client IP lookup endpoint (ipify JSON
	// shape). Empty disables lookup; entries record "unknown".
	LookupURL     string
	LookupTimeout time.Duration
	BufferSize    int
	DropIfFull    bool
}

// CSRFConfig controls per-session anti-forgery tokens.
type CSRFConfig struct {
	StorageKey string
}

// DefaultConfig returns the deployed dashboard's defaults: 5 login
// attempts per 15-minute window, a 100-entry audit trail, audit enabled.
func DefaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			LoginLimit:   5,
			LoginWindow:  15 * time.Minute,
			SignupLimit:  5,
			SignupWindow: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:       true,
			StorageKey:    "audit_logs",
			MaxEntries:    100,
			LookupTimeout: 3 * time.Second,
			BufferSize:    64,
			DropIfFull:    true,
		},
		CSRF: CSRFConfig{
			StorageKey: "csrf_token",
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.RateLimit.LoginLimit <= 0 {
		return errors.New("rate limit: login limit must be positive")
	}
	if cfg.RateLimit.LoginWindow <= 0 {
		return errors.New("rate limit: login window must be positive")
	}
	if cfg.RateLimit.SignupLimit <= 0 {
		return errors.New("rate limit: signup limit must be positive")
	}
	if cfg.RateLimit.SignupWindow <= 0 {
		return errors.New("rate limit: signup window must be positive")
	}
	if cfg.Audit.Enabled && cfg.Audit.MaxEntries <= 0 {
		return errors.New("audit: max entries must be positive")
	}
	return nil
}
