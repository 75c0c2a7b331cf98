package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    32768,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("wholesale-buyer-7", fastArgon)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	ok, err := security.VerifyPassword("wholesale-buyer-7", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = security.VerifyPassword("wholesale-buyer-8", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$c2FsdA",
	} {
		if _, err := security.VerifyPassword("irrelevant", encoded); err != security.ErrInvalidHash {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}

func TestPasswordLengthPolicy(t *testing.T) {
	if _, err := security.HashPassword("short", config.PasswordConfig{}); err != security.ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := security.CheckPassword(strings.Repeat("x", security.MaxPasswordLength+1)); err != security.ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	// Runes, not bytes.
	if err := security.CheckPassword("密码密码密码密码"); err != nil {
		t.Fatalf("eight runes should pass, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("wholesale-buyer-7", fastArgon)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if security.NeedsRehash(hash, fastArgon) {
		t.Fatal("hash made with current params should not need a rehash")
	}
	stronger := fastArgon
	stronger.ArgonTime = 2
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("changed time cost should require a rehash")
	}
	if !security.NeedsRehash("garbage", fastArgon) {
		t.Fatal("garbage should require a rehash")
	}
}

func TestNewTemporaryPassword(t *testing.T) {
	pw, err := security.NewTemporaryPassword(security.TemporaryPasswordLength)
	if err != nil {
		t.Fatalf("NewTemporaryPassword returned error: %v", err)
	}
	if len(pw) != security.TemporaryPasswordLength {
		t.Fatalf("expected %d chars, got %d", security.TemporaryPasswordLength, len(pw))
	}
	if strings.ContainsAny(pw, "0O1lI") {
		t.Fatalf("ambiguous character in %q", pw)
	}
	if err := security.CheckPassword(pw); err != nil {
		t.Fatalf("temporary password fails policy: %v", err)
	}
	if _, err := security.NewTemporaryPassword(4); err == nil {
		t.Fatal("expected error below the minimum length")
	}
}
