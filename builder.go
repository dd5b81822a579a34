package authguard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/postureboard/authguard/audit"
	"github.com/postureboard/authguard/csrf"
	"github.com/postureboard/authguard/ratelimit"
	"github.com/postureboard/authguard/storage"
)

// Builder assembles a [Controller]. Configure with the With* methods and
// call Build once.
type Builder struct {
	config   Config
	provider Provider

	auditKV  storage.KV
	resolver audit.Resolver
	mirror   audit.Sink

	csrfManager *csrf.Manager
	logger      zerolog.Logger
	clock       func() time.Time

	built bool
}

// New returns a Builder loaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithProvider sets the external auth provider. Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithAuditKV sets the durable store backing the audit trail. Required
// when auditing is enabled.
func (b *Builder) WithAuditKV(kv storage.KV) *Builder {
	b.auditKV = kv
	return b
}

// WithIPResolver overrides the audit IP resolver. When unset, Build
// derives one from Config.Audit.LookupURL, or disables lookup entirely.
func (b *Builder) WithIPResolver(r audit.Resolver) *Builder {
	b.resolver = r
	return b
}

// WithAuditMirror sets a secondary sink that sees every audit entry as it
// is appended, e.g. a JSON writer on stderr.
func (b *Builder) WithAuditMirror(sink audit.Sink) *Builder {
	b.mirror = sink
	return b
}

// WithCSRF attaches a CSRF token manager. The controller then re-issues a
// fresh token after every login and signup attempt.
func (b *Builder) WithCSRF(m *csrf.Manager) *Builder {
	b.csrfManager = m
	return b
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock injects the clock used by the rate limiter and audit
// timestamps. Tests use this to drive window expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.clock = now
	}
	return b
}

// Build wires the controller, primes its state from the provider's current
// session, and starts the session-change subscription.
func (b *Builder) Build(ctx context.Context) (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.provider == nil {
		return nil, ErrNotReady
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	c := &Controller{
		config:   b.config,
		provider: b.provider,
		limiter:  ratelimit.NewWithClock(b.clock),
		csrf:     b.csrfManager,
		log:      b.logger,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	c.state.Loading = true

	if b.config.Audit.Enabled {
		if b.auditKV == nil {
			return nil, errors.New("audit enabled but no audit storage configured")
		}
		resolver := b.resolver
		if resolver == nil && b.config.Audit.LookupURL != "" {
			resolver = audit.NewHTTPResolver(b.config.Audit.LookupURL, b.config.Audit.LookupTimeout)
		}
		c.trail = audit.NewStore(b.auditKV, resolver, b.mirror, audit.StoreConfig{
			StorageKey: b.config.Audit.StorageKey,
			MaxEntries: b.config.Audit.MaxEntries,
			UserAgent:  b.config.Audit.UserAgent,
		}, b.logger).WithClock(b.clock)
		c.dispatcher = audit.NewDispatcher(audit.DispatcherConfig{
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, c.trail)
	}

	c.prime(ctx)

	go c.run()

	b.built = true
	return c, nil
}
