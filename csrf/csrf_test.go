package csrf

import (
	"context"
	"testing"

	"github.com/postureboard/authguard/storage"
)

func TestValidateFreshToken(t *testing.T) {
	m := NewManager(storage.NewMemory(), "")
	ctx := context.Background()

	token, err := m.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !m.Validate(ctx, token) {
		t.Fatalf("fresh token must validate")
	}
}

func TestValidateRejectsMismatch(t *testing.T) {
	m := NewManager(storage.NewMemory(), "")
	ctx := context.Background()

	token, err := m.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if m.Validate(ctx, token+"x") {
		t.Fatalf("mutated token must not validate")
	}
	if m.Validate(ctx, "") {
		t.Fatalf("empty candidate must not validate")
	}
}

func TestValidateWithoutIssuedToken(t *testing.T) {
	m := NewManager(storage.NewMemory(), "")
	ctx := context.Background()

	if m.Validate(ctx, "anything") {
		t.Fatalf("validation must fail when no token was issued")
	}
	if _, ok := m.Current(ctx); ok {
		t.Fatalf("expected no current token")
	}
}

func TestReissueInvalidatesPriorToken(t *testing.T) {
	m := NewManager(storage.NewMemory(), "")
	ctx := context.Background()

	first, err := m.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := m.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
	if m.Validate(ctx, first) {
		t.Fatalf("stale token must not validate after reissue")
	}
	if !m.Validate(ctx, second) {
		t.Fatalf("latest token must validate")
	}
}

func TestCurrentDoesNotMutate(t *testing.T) {
	m := NewManager(storage.NewMemory(), "form_token")
	ctx := context.Background()

	issued, err := m.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		current, ok := m.Current(ctx)
		if !ok || current != issued {
			t.Fatalf("Current changed the stored token: %q vs %q", current, issued)
		}
	}
}
