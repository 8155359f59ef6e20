package subaccount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/formsigner/api/internal/auth"
	"github.com/formsigner/api/internal/repo"
)

type stubRepo struct {
	subs        map[uuid.UUID]*SubAccount
	lastLoginID uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{subs: make(map[uuid.UUID]*SubAccount)}
}

func (s *stubRepo) Create(_ context.Context, sub SubAccount) (*SubAccount, error) {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	s.subs[sub.ID] = &sub
	copied := sub
	return &copied, nil
}

func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*SubAccount, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *stubRepo) GetByUsername(_ context.Context, mainAccountID uuid.UUID, username string) (*SubAccount, error) {
	for _, sub := range s.subs {
		if sub.MainAccountID == mainAccountID && sub.Username == username {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubRepo) ListByMainAccount(_ context.Context, mainAccountID uuid.UUID) ([]SubAccount, error) {
	var out []SubAccount
	for _, sub := range s.subs {
		if sub.MainAccountID == mainAccountID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *stubRepo) Update(_ context.Context, input UpdateInput) (*SubAccount, error) {
	sub, ok := s.subs[input.ID]
	if !ok || sub.MainAccountID != input.MainAccountID {
		return nil, ErrNotFound
	}
	if input.DisplayName != nil {
		sub.DisplayName = *input.DisplayName
	}
	if input.Active != nil {
		sub.Active = *input.Active
	}
	if input.Permissions != nil {
		sub.Permissions = *input.Permissions
	}
	copied := *sub
	return &copied, nil
}

func (s *stubRepo) Delete(_ context.Context, mainAccountID, id uuid.UUID) error {
	sub, ok := s.subs[id]
	if !ok || sub.MainAccountID != mainAccountID {
		return ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

func (s *stubRepo) SetPasswordHash(_ context.Context, mainAccountID, id uuid.UUID, hash string) error {
	sub, ok := s.subs[id]
	if !ok || sub.MainAccountID != mainAccountID {
		return ErrNotFound
	}
	sub.PasswordHash = hash
	return nil
}

func (s *stubRepo) SetLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLoginID = id
	if sub, ok := s.subs[id]; ok {
		sub.LastLoginAt = &at
	}
	return nil
}

type stubAccounts struct {
	accounts map[string]repo.MainAccount
}

func (s *stubAccounts) GetMainAccountByEmail(_ context.Context, email string) (repo.MainAccount, error) {
	acc, ok := s.accounts[email]
	if !ok {
		return repo.MainAccount{}, repo.ErrNotFound
	}
	return acc, nil
}

type stubRedis struct {
	data   map[string]string
	setErr error
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: make(map[string]string)}
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if s.setErr != nil {
		cmd.SetErr(s.setErr)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	case string:
		s.data[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if val, ok := s.data[key]; ok {
		cmd.SetVal(val)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, key := range keys {
		if _, ok := s.data[key]; ok {
			delete(s.data, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func newTestService(t *testing.T) (*Service, *stubRepo, *stubRedis, repo.MainAccount) {
	t.Helper()

	account := repo.MainAccount{
		ID:     uuid.New(),
		Name:   "Acme Forms",
		Email:  "owner@acme.test",
		Active: true,
	}
	accounts := &stubAccounts{accounts: map[string]repo.MainAccount{account.Email: account}}

	repository := newStubRepo()
	redisStub := newStubRedis()
	svc := NewService(repository, accounts, redisStub, time.Hour)
	return svc, repository, redisStub, account
}

func TestLoginSuccess(t *testing.T) {
	svc, repository, redisStub, account := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Create(ctx, CreateInput{
		MainAccountID: account.ID,
		Username:      "viewer",
		Password:      "secret123",
		Permissions:   Permissions{PDFAccess: true},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	session, err := svc.Login(ctx, account.Email, "viewer", "secret123", LoginMeta{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected opaque session token")
	}
	if session.SubAccount.ID != sub.ID {
		t.Fatal("session must carry the sub-account record")
	}

	key := auth.SessionRedisKey(auth.HashSessionToken(session.Token))
	if _, ok := redisStub.data[key]; !ok {
		t.Fatal("session record must be stored under the hashed token")
	}
	if repository.lastLoginID != sub.ID {
		t.Fatal("last login timestamp must be recorded")
	}

	resolved, err := svc.GetSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if resolved.MainAccountID != account.ID {
		t.Fatal("resolved session must keep the owning account scope")
	}
}

func TestLoginFailuresCollapse(t *testing.T) {
	svc, _, _, account := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{
		MainAccountID: account.ID,
		Username:      "viewer",
		Password:      "secret123",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name     string
		email    string
		username string
		password string
	}{
		{"unknown main account", "nobody@acme.test", "viewer", "secret123"},
		{"unknown username", account.Email, "ghost", "secret123"},
		{"wrong password", account.Email, "viewer", "wrong-password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.email, tc.username, tc.password, LoginMeta{})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginDisabledSubAccount(t *testing.T) {
	svc, _, _, account := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Create(ctx, CreateInput{
		MainAccountID: account.ID,
		Username:      "viewer",
		Password:      "secret123",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	disabled := false
	if _, err := svc.Update(ctx, UpdateInput{ID: sub.ID, MainAccountID: account.ID, Active: &disabled}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := svc.Login(ctx, account.Email, "viewer", "secret123", LoginMeta{}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _, account := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{
		MainAccountID: account.ID,
		Username:      "viewer",
		Password:      "secret123",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	session, err := svc.Login(ctx, account.Email, "viewer", "secret123", LoginMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.GetSession(ctx, session.Token); !errors.Is(err, auth.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
	}
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	svc, _, _, account := newTestService(t)
	ctx := context.Background()

	input := CreateInput{MainAccountID: account.ID, Username: "viewer", Password: "secret123"}
	if _, err := svc.Create(ctx, input); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, input); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _, account := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{MainAccountID: account.ID, Username: "x", Password: "secret123"}); err == nil {
		t.Fatal("expected short username rejection")
	}
	if _, err := svc.Create(ctx, CreateInput{MainAccountID: account.ID, Username: "viewer", Password: "short"}); err == nil {
		t.Fatal("expected short password rejection")
	}
}
