package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/postureboard/authguard/storage"
	"github.com/rs/zerolog"
)

// DefaultStorageKey is the durable-store key the trail is persisted under.
const DefaultStorageKey = "audit_logs"

// DefaultMaxEntries is the retention cap: once the trail exceeds it, the
// oldest entries are dropped.
const DefaultMaxEntries = 100

// StoreConfig configures a [Store].
type StoreConfig struct {
	StorageKey string // defaults to DefaultStorageKey
	MaxEntries int    // defaults to DefaultMaxEntries
	UserAgent  string // stamped onto every entry
}

// Store is the append-only audit trail. Entries are stamped with the
// current time, the configured user agent, and a best-effort resolved IP
// address, then persisted as a JSON array in the durable store.
//
// Append never reports failure: storage and lookup problems are written to
// the diagnostic logger and swallowed, because audit logging must never
// block or fail the action it is observing.
type Store struct {
	kv       storage.KV
	resolver Resolver
	mirror   Sink
	cfg      StoreConfig
	now      func() time.Time
	log      zerolog.Logger

	// Serializes read-modify-write of the persisted array.
	mu sync.Mutex
}

// NewStore creates a Store over the durable kv. resolver may be nil, in
// which case every entry records [UnknownIP]. mirror may be nil; when set,
// each appended entry is also emitted to it.
func NewStore(kv storage.KV, resolver Resolver, mirror Sink, cfg StoreConfig, log zerolog.Logger) *Store {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if mirror == nil {
		mirror = NoOpSink{}
	}
	return &Store{
		kv:       kv,
		resolver: resolver,
		mirror:   mirror,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the store's clock. Tests use this for deterministic
// timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Append stamps entry and adds it to the persisted trail, truncating from
// the front so at most MaxEntries remain. It never returns an error.
func (s *Store) Append(ctx context.Context, entry Entry) {
	entry.Timestamp = s.now().UTC()
	if entry.UserAgent == "" {
		entry.UserAgent = s.cfg.UserAgent
	}
	entry.IPAddress = s.resolveIP(ctx)

	s.mirror.Emit(ctx, entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readLocked(ctx)
	entries = append(entries, entry)
	if len(entries) > s.cfg.MaxEntries {
		entries = entries[len(entries)-s.cfg.MaxEntries:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		s.log.Warn().Err(err).Msg("audit: encode trail failed")
		return
	}
	if err := s.kv.Set(ctx, s.cfg.StorageKey, string(data)); err != nil {
		s.log.Warn().Err(err).Msg("audit: persist trail failed")
	}
}

// Read returns the persisted trail oldest-first. Missing or corrupt
// storage yields an empty slice, never an error.
func (s *Store) Read(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(ctx)
}

func (s *Store) readLocked(ctx context.Context) []Entry {
	raw, ok, err := s.kv.Get(ctx, s.cfg.StorageKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("audit: read trail failed")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// Corrupt trail is discarded rather than surfaced; the next
		// append starts a fresh array.
		s.log.Warn().Err(err).Msg("audit: decode trail failed")
		return nil
	}
	return entries
}

func (s *Store) resolveIP(ctx context.Context) string {
	if s.resolver == nil {
		return UnknownIP
	}
	ip, err := s.resolver.Resolve(ctx)
	if err != nil || ip == "" {
		return UnknownIP
	}
	return ip
}

// Emit makes Store usable as a [Sink], typically behind a [Dispatcher].
func (s *Store) Emit(ctx context.Context, entry Entry) {
	s.Append(ctx, entry)
}
