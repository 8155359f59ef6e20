package subaccount

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/formsigner/api/internal/auth"
)

type mapStore struct {
	data map[string]string
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]string)}
}

func (s *mapStore) Get(key string) (string, bool) {
	val, ok := s.data[key]
	return val, ok
}

func (s *mapStore) Set(key, value string) error {
	s.data[key] = value
	return nil
}

func (s *mapStore) Delete(key string) {
	delete(s.data, key)
}

func TestLocalRepositoryRoundTrip(t *testing.T) {
	store := newMapStore()
	repo := NewLocalRepository(store)
	ctx := context.Background()
	mainID := uuid.New()

	created, err := repo.Create(ctx, SubAccount{
		ID:            uuid.New(),
		MainAccountID: mainID,
		Username:      "viewer",
		DisplayName:   "Viewer",
		PasswordHash:  auth.HashSubAccountPassword("secret123", mainID),
		Active:        true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A fresh repository over the same store must see the persisted record,
	// password hash included.
	reopened := NewLocalRepository(store)
	got, err := reopened.GetByUsername(ctx, mainID, "viewer")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != created.ID {
		t.Fatal("persisted record mismatch")
	}
	if got.PasswordHash == "" {
		t.Fatal("password hash must survive persistence")
	}
	if !auth.VerifySubAccountPassword("secret123", mainID, got.PasswordHash) {
		t.Fatal("persisted hash must verify")
	}
}

func TestLocalRepositoryScopesByAccount(t *testing.T) {
	store := newMapStore()
	repo := NewLocalRepository(store)
	ctx := context.Background()

	ownerA := uuid.New()
	ownerB := uuid.New()

	if _, err := repo.Create(ctx, SubAccount{ID: uuid.New(), MainAccountID: ownerA, Username: "viewer"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByUsername(ctx, ownerB, "viewer"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign account, got %v", err)
	}
}

func TestLocalRepositoryCorruptedEntry(t *testing.T) {
	store := newMapStore()
	repo := NewLocalRepository(store)
	ctx := context.Background()
	mainID := uuid.New()

	store.data[localKey(mainID)] = "{not json"

	subs, err := repo.ListByMainAccount(ctx, mainID)
	if err != nil {
		t.Fatalf("ListByMainAccount: %v", err)
	}
	if len(subs) != 0 {
		t.Fatal("corrupted entry must read as empty")
	}
	if _, ok := store.data[localKey(mainID)]; ok {
		t.Fatal("corrupted entry must be discarded")
	}
}
