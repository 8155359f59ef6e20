package repo

import (
	"context"
	"encoding/json"
	"strings"
)

// localStore is the read side of the client key/value storage used in
// degraded mode.
type localStore interface {
	Get(key string) (string, bool)
}

const localAccountsKey = "main_accounts"

// LocalQueries serves main-account lookups from durable local storage when
// the database is unreachable. The record set is whatever the store last
// cached; it is read-only here.
type LocalQueries struct {
	store localStore
}

// NewLocal creates the degraded-mode query layer.
func NewLocal(store localStore) *LocalQueries {
	return &LocalQueries{store: store}
}

func (q *LocalQueries) load() []MainAccount {
	raw, ok := q.store.Get(localAccountsKey)
	if !ok {
		return nil
	}
	var accounts []MainAccount
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil
	}
	return accounts
}

// GetMainAccountByEmail looks an account up by normalized e-mail.
func (q *LocalQueries) GetMainAccountByEmail(ctx context.Context, email string) (MainAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, acc := range q.load() {
		if strings.ToLower(acc.Email) == email {
			return acc, nil
		}
	}
	return MainAccount{}, ErrNotFound
}
