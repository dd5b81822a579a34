package password

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2 {
	t.Helper()

	// Minimum parameters keep the test fast; production uses
	// DefaultArgon2Config.
	hasher, err := NewArgon2(Argon2Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return hasher
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := testHasher(t)

	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("correct-horse-battery", hash)
	if err != nil || !ok {
		t.Fatalf("expected verify success, got ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("wrong-password-here", hash)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if ok {
		t.Fatalf("expected verify failure for wrong password")
	}
}

func TestHashesAreSalted(t *testing.T) {
	hasher := testHasher(t)

	h1, err := hasher.Hash("same-password-twice")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := hasher.Hash("same-password-twice")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	hasher := testHasher(t)

	malformed := []string{
		"",
		"not-a-phc-string",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!badsalt$aGFzaA",
	}
	for _, h := range malformed {
		if _, err := hasher.Verify("whatever", h); err == nil {
			t.Fatalf("expected error for malformed hash %q", h)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	weak := Argon2Config{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	if _, err := NewArgon2(weak); err == nil {
		t.Fatalf("expected rejection of sub-minimum memory")
	}

	zero := Argon2Config{}
	if _, err := NewArgon2(zero); err == nil {
		t.Fatalf("expected rejection of zero config")
	}
}
