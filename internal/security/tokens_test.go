package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager([]byte("unit-test-secret-key"), time.Hour)

	token, err := tm.Issue(42)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	userID, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if userID != 42 {
		t.Errorf("expected user id 42, got %d", userID)
	}
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	tm := NewTokenManager([]byte("unit-test-secret-key"), time.Hour)

	token, err := tm.Issue(42)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := tm.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager([]byte("unit-test-secret-key"), time.Hour)
	verifier := NewTokenManager([]byte("a-different-secret!!"), time.Hour)

	token, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager([]byte("unit-test-secret-key"), -time.Minute)

	token, err := tm.Issue(42)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := tm.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager([]byte("unit-test-secret-key"), time.Hour)

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := tm.Verify(input); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): expected ErrInvalidToken, got %v", input, err)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pass1234")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "pass1234" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !CheckPassword(hash, "pass1234") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrongpass") {
		t.Error("wrong password accepted")
	}
}

func TestHashPassword_LengthLimits(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for password under 8 characters")
	}

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long)); err == nil {
		t.Error("expected error for password over 100 characters")
	}
}
