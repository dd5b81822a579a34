package audit

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/postureboard/authguard/storage"
)

func newTestStore(t *testing.T, resolver Resolver, mirror Sink) (*Store, *storage.Memory) {
	t.Helper()

	kv := storage.NewMemory()
	store := NewStore(kv, resolver, mirror, StoreConfig{
		UserAgent: "authguard-test/1.0",
	}, zerolog.Nop())
	return store, kv
}

func TestAppendStampsEntry(t *testing.T) {
	store, _ := newTestStore(t, StaticResolver("203.0.113.7"), nil)
	stamp := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return stamp })
	ctx := context.Background()

	store.Append(ctx, Entry{
		EventType: EventLoginAttempt,
		Details:   map[string]any{"email": "user@test.com"},
	})

	entries := store.Read(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.EventType != EventLoginAttempt {
		t.Fatalf("unexpected event type %q", got.EventType)
	}
	if !got.Timestamp.Equal(stamp) {
		t.Fatalf("unexpected timestamp %v", got.Timestamp)
	}
	if got.UserAgent != "authguard-test/1.0" {
		t.Fatalf("unexpected user agent %q", got.UserAgent)
	}
	if got.IPAddress != "203.0.113.7" {
		t.Fatalf("unexpected ip %q", got.IPAddress)
	}
	if got.Details["email"] != "user@test.com" {
		t.Fatalf("details not preserved: %v", got.Details)
	}
}

func TestAppendTruncatesToMostRecent(t *testing.T) {
	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()

	for i := 0; i < 105; i++ {
		store.Append(ctx, Entry{
			EventType: EventDataAccess,
			Details:   map[string]any{"seq": strconv.Itoa(i)},
		})
	}

	entries := store.Read(ctx)
	if len(entries) != 100 {
		t.Fatalf("expected exactly 100 entries, got %d", len(entries))
	}
	// Oldest five are gone; survivors keep insertion order.
	if entries[0].Details["seq"] != "5" {
		t.Fatalf("expected first surviving entry seq=5, got %v", entries[0].Details["seq"])
	}
	if entries[99].Details["seq"] != "104" {
		t.Fatalf("expected last entry seq=104, got %v", entries[99].Details["seq"])
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context) (string, error) {
	return "", errors.New("lookup down")
}

func TestResolverFailureRecordsUnknown(t *testing.T) {
	store, _ := newTestStore(t, failingResolver{}, nil)
	ctx := context.Background()

	store.Append(ctx, Entry{EventType: EventLogout})

	entries := store.Read(ctx)
	if len(entries) != 1 || entries[0].IPAddress != UnknownIP {
		t.Fatalf("expected %q ip, got %+v", UnknownIP, entries)
	}
}

func TestNilResolverRecordsUnknown(t *testing.T) {
	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()

	store.Append(ctx, Entry{EventType: EventLogout})
	if got := store.Read(ctx)[0].IPAddress; got != UnknownIP {
		t.Fatalf("expected %q, got %q", UnknownIP, got)
	}
}

func TestReadCorruptTrailYieldsEmpty(t *testing.T) {
	store, kv := newTestStore(t, nil, nil)
	ctx := context.Background()

	if err := kv.Set(ctx, DefaultStorageKey, "{not json]"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if got := store.Read(ctx); len(got) != 0 {
		t.Fatalf("expected empty trail for corrupt storage, got %d", len(got))
	}

	// The next append starts a fresh trail.
	store.Append(ctx, Entry{EventType: EventSecurityViolation})
	if got := store.Read(ctx); len(got) != 1 {
		t.Fatalf("expected fresh trail of 1, got %d", len(got))
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, storage.ErrUnavailable
}

func (failingKV) Set(context.Context, string, string) error {
	return storage.ErrUnavailable
}

func (failingKV) Delete(context.Context, string) error {
	return storage.ErrUnavailable
}

func TestAppendNeverPanicsOnStorageFailure(t *testing.T) {
	store := NewStore(failingKV{}, nil, nil, StoreConfig{}, zerolog.Nop())
	ctx := context.Background()

	// Must not panic or propagate anything.
	store.Append(ctx, Entry{EventType: EventLoginFailure})
	if got := store.Read(ctx); len(got) != 0 {
		t.Fatalf("expected empty read from failing storage, got %d", len(got))
	}
}

func TestMirrorSinkSeesEveryAppend(t *testing.T) {
	var buf bytes.Buffer
	mirror := NewJSONWriterSink(&buf)
	store, _ := newTestStore(t, nil, mirror)
	ctx := context.Background()

	store.Append(ctx, Entry{EventType: EventLoginAttempt})
	store.Append(ctx, Entry{EventType: EventLoginFailure})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 mirrored lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], EventLoginAttempt) || !strings.Contains(lines[1], EventLoginFailure) {
		t.Fatalf("mirror lines out of order: %v", lines)
	}
}
