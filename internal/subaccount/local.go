package subaccount

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// keyValueStore is the durable key/value storage the local fallback persists
// to. The session package's file store satisfies it.
type keyValueStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string)
}

// LocalRepository keeps sub-accounts in durable client storage. It is the
// degraded-mode implementation selected at startup when the backend table is
// unreachable; the fallback policy lives here instead of branching at each
// call site.
type LocalRepository struct {
	store keyValueStore
}

// NewLocalRepository creates the fallback repository over a key/value store.
func NewLocalRepository(store keyValueStore) *LocalRepository {
	return &LocalRepository{store: store}
}

func localKey(mainAccountID uuid.UUID) string {
	return "sub_accounts:" + mainAccountID.String()
}

// localRecord mirrors SubAccount but keeps the password hash, which the API
// representation deliberately omits.
type localRecord struct {
	SubAccount
	StoredPasswordHash string `json:"password_hash"`
}

func (r *LocalRepository) load(mainAccountID uuid.UUID) []SubAccount {
	raw, ok := r.store.Get(localKey(mainAccountID))
	if !ok {
		return nil
	}
	var records []localRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// Corrupted entry: treat as empty rather than failing every call.
		r.store.Delete(localKey(mainAccountID))
		return nil
	}
	subs := make([]SubAccount, 0, len(records))
	for _, rec := range records {
		sub := rec.SubAccount
		sub.PasswordHash = rec.StoredPasswordHash
		subs = append(subs, sub)
	}
	return subs
}

func (r *LocalRepository) save(mainAccountID uuid.UUID, subs []SubAccount) error {
	records := make([]localRecord, 0, len(subs))
	for _, sub := range subs {
		records = append(records, localRecord{SubAccount: sub, StoredPasswordHash: sub.PasswordHash})
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return r.store.Set(localKey(mainAccountID), string(raw))
}

// Create appends a new sub-account to local storage.
func (r *LocalRepository) Create(ctx context.Context, sub SubAccount) (*SubAccount, error) {
	subs := r.load(sub.MainAccountID)
	for _, existing := range subs {
		if strings.EqualFold(existing.Username, sub.Username) {
			return nil, ErrUsernameTaken
		}
	}

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	subs = append(subs, sub)
	if err := r.save(sub.MainAccountID, subs); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByID scans all locally stored accounts for the id.
func (r *LocalRepository) GetByID(ctx context.Context, id uuid.UUID) (*SubAccount, error) {
	// Local storage is keyed by owner; without one we cannot locate the row.
	return nil, ErrNotFound
}

// GetByUsername fetches a sub-account by owner and username.
func (r *LocalRepository) GetByUsername(ctx context.Context, mainAccountID uuid.UUID, username string) (*SubAccount, error) {
	for _, sub := range r.load(mainAccountID) {
		if strings.EqualFold(sub.Username, strings.TrimSpace(username)) {
			found := sub
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// ListByMainAccount returns the locally stored sub-accounts, newest first.
func (r *LocalRepository) ListByMainAccount(ctx context.Context, mainAccountID uuid.UUID) ([]SubAccount, error) {
	subs := r.load(mainAccountID)
	for i, j := 0, len(subs)-1; i < j; i, j = i+1, j-1 {
		subs[i], subs[j] = subs[j], subs[i]
	}
	return subs, nil
}

// Update applies partial changes in place.
func (r *LocalRepository) Update(ctx context.Context, input UpdateInput) (*SubAccount, error) {
	subs := r.load(input.MainAccountID)
	for i := range subs {
		if subs[i].ID != input.ID {
			continue
		}
		if input.DisplayName != nil {
			subs[i].DisplayName = strings.TrimSpace(*input.DisplayName)
		}
		if input.Active != nil {
			subs[i].Active = *input.Active
		}
		if input.Permissions != nil {
			subs[i].Permissions = *input.Permissions
		}
		subs[i].UpdatedAt = time.Now().UTC()
		if err := r.save(input.MainAccountID, subs); err != nil {
			return nil, err
		}
		updated := subs[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

// Delete removes the sub-account from local storage.
func (r *LocalRepository) Delete(ctx context.Context, mainAccountID, id uuid.UUID) error {
	subs := r.load(mainAccountID)
	for i := range subs {
		if subs[i].ID == id {
			subs = append(subs[:i], subs[i+1:]...)
			return r.save(mainAccountID, subs)
		}
	}
	return ErrNotFound
}

// SetPasswordHash overwrites the stored hash.
func (r *LocalRepository) SetPasswordHash(ctx context.Context, mainAccountID, id uuid.UUID, hash string) error {
	subs := r.load(mainAccountID)
	for i := range subs {
		if subs[i].ID == id {
			subs[i].PasswordHash = hash
			subs[i].UpdatedAt = time.Now().UTC()
			return r.save(mainAccountID, subs)
		}
	}
	return ErrNotFound
}

// SetLastLogin records the login time. The owner is unknown here, so this is
// a no-op for the local store (the session carries the denormalized record).
func (r *LocalRepository) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}
