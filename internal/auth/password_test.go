package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := Verify("correct horse battery staple", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to pass, ok=%v err=%v", ok, err)
	}

	ok, err = Verify("wrong password", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail for wrong password")
	}
}

func TestHashSubAccountPasswordDeterministic(t *testing.T) {
	mainID := uuid.New()

	first := HashSubAccountPassword("secret123", mainID)
	second := HashSubAccountPassword("secret123", mainID)
	if first != second {
		t.Fatal("same password and account must hash identically")
	}

	if len(first) != 64 {
		t.Fatalf("expected hex sha256 output, got %d chars", len(first))
	}
}

func TestHashSubAccountPasswordScopedToAccount(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	if HashSubAccountPassword("secret123", a) == HashSubAccountPassword("secret123", b) {
		t.Fatal("hash must differ across owning accounts")
	}
}

func TestVerifySubAccountPassword(t *testing.T) {
	mainID := uuid.New()
	stored := HashSubAccountPassword("secret123", mainID)

	if !VerifySubAccountPassword("secret123", mainID, stored) {
		t.Fatal("expected match")
	}
	if VerifySubAccountPassword("secret124", mainID, stored) {
		t.Fatal("expected mismatch for wrong password")
	}
	if VerifySubAccountPassword("secret123", uuid.New(), stored) {
		t.Fatal("expected mismatch for wrong owning account")
	}
}
