package auth

import (
	"strings"
	"testing"
)

func TestGenerateSessionToken(t *testing.T) {
	raw, hashed, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if raw == "" || hashed == "" {
		t.Fatal("expected non-empty token and hash")
	}
	if raw == hashed {
		t.Fatal("raw token must never equal its stored hash")
	}
	if hashed != HashSessionToken(raw) {
		t.Fatal("hash must be reproducible from the raw token")
	}

	other, _, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if raw == other {
		t.Fatal("tokens must be unique")
	}
}

func TestSessionRedisKey(t *testing.T) {
	key := SessionRedisKey(HashSessionToken("abc"))
	if !strings.HasPrefix(key, "subaccount:session:") {
		t.Fatalf("unexpected key %q", key)
	}
}
