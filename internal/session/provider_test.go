package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/formsigner/api/internal/subaccount"
)

type stubExchanger struct {
	session  *subaccount.Session
	loginErr error
	meErr    error
	meCalls  int
}

func (s *stubExchanger) SubAccountLogin(_ context.Context, _, _, _ string) (*subaccount.Session, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.session, nil
}

func (s *stubExchanger) SubAccountMe(_ context.Context, _ string) (*subaccount.SubAccount, error) {
	s.meCalls++
	if s.meErr != nil {
		return nil, s.meErr
	}
	sub := s.session.SubAccount
	return &sub, nil
}

func testSession() *subaccount.Session {
	return &subaccount.Session{
		Token: "opaque-token",
		SubAccount: subaccount.SubAccount{
			ID:            uuid.New(),
			MainAccountID: uuid.New(),
			Username:      "viewer",
			DisplayName:   "Viewer",
			Active:        true,
			Permissions:   subaccount.Permissions{PDFAccess: true},
		},
	}
}

func TestLoginPersistsSession(t *testing.T) {
	store := NewMemoryStore()
	api := &stubExchanger{session: testSession()}
	provider := NewProvider(store, api, true)

	if provider.IsSubAccount() {
		t.Fatal("fresh provider must start logged out")
	}

	if err := provider.Login(context.Background(), "owner@acme.test", "viewer", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	token, ok := store.Get(KeySessionToken)
	if !ok || token != "opaque-token" {
		t.Fatal("token must be persisted under its storage key")
	}
	if _, ok := store.Get(KeySessionData); !ok {
		t.Fatal("record must be persisted under its storage key")
	}
	if !provider.IsSubAccount() {
		t.Fatal("provider must report an active session")
	}
}

func TestLoginFailureCollapses(t *testing.T) {
	store := NewMemoryStore()
	api := &stubExchanger{loginErr: errors.New("network down")}
	provider := NewProvider(store, api, true)

	err := provider.Login(context.Background(), "owner@acme.test", "viewer", "secret123")
	if !errors.Is(err, subaccount.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if provider.IsSubAccount() {
		t.Fatal("failed login must not leave a session behind")
	}
}

func TestRestoreIsOptimistic(t *testing.T) {
	store := NewMemoryStore()
	sess := testSession()
	raw, _ := json.Marshal(sess.SubAccount)
	_ = store.Set(KeySessionToken, sess.Token)
	_ = store.Set(KeySessionData, string(raw))

	// No network: restoration must still produce a usable session.
	provider := NewProvider(store, nil, true)
	if !provider.IsSubAccount() {
		t.Fatal("stored session must restore as logged in")
	}
	if provider.Token() != sess.Token {
		t.Fatal("restored token mismatch")
	}
	current := provider.Current()
	if current == nil || current.Username != "viewer" {
		t.Fatal("restored record mismatch")
	}
}

func TestRestoreClearsCorruptedData(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(KeySessionToken, "opaque-token")
	_ = store.Set(KeySessionData, "{not valid json")

	provider := NewProvider(store, nil, true)
	if provider.IsSubAccount() {
		t.Fatal("corrupted record must not restore")
	}
	if _, ok := store.Get(KeySessionToken); ok {
		t.Fatal("corrupted session must clear the token key")
	}
	if _, ok := store.Get(KeySessionData); ok {
		t.Fatal("corrupted session must clear the data key")
	}
}

func TestRestoreIgnoresPartialState(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(KeySessionToken, "opaque-token")

	provider := NewProvider(store, nil, true)
	if provider.IsSubAccount() {
		t.Fatal("a token without its record must not restore")
	}
}

func TestValidateTrustsRestoredSession(t *testing.T) {
	store := NewMemoryStore()
	sess := testSession()
	raw, _ := json.Marshal(sess.SubAccount)
	_ = store.Set(KeySessionToken, sess.Token)
	_ = store.Set(KeySessionData, string(raw))

	api := &stubExchanger{session: sess, meErr: errors.New("backend down")}
	provider := NewProvider(store, api, true)

	if !provider.Validate(context.Background()) {
		t.Fatal("trust-on-restore must report valid without probing")
	}
	if api.meCalls != 0 {
		t.Fatal("trusting validation must not touch the network")
	}
}

func TestValidateProbesWhenNotTrusting(t *testing.T) {
	store := NewMemoryStore()
	sess := testSession()
	raw, _ := json.Marshal(sess.SubAccount)
	_ = store.Set(KeySessionToken, sess.Token)
	_ = store.Set(KeySessionData, string(raw))

	api := &stubExchanger{session: sess, meErr: errors.New("session revoked")}
	provider := NewProvider(store, api, false)

	if provider.Validate(context.Background()) {
		t.Fatal("failed probe must report invalid")
	}
	if api.meCalls != 1 {
		t.Fatalf("expected one probe, got %d", api.meCalls)
	}
	// The provider reports, it never decides: the session stays in place.
	if !provider.IsSubAccount() {
		t.Fatal("failed validation must not clear the session")
	}
	if _, ok := store.Get(KeySessionToken); !ok {
		t.Fatal("failed validation must not touch storage")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	store := NewMemoryStore()
	api := &stubExchanger{session: testSession()}
	provider := NewProvider(store, api, true)

	if err := provider.Login(context.Background(), "owner@acme.test", "viewer", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	provider.Logout()
	if provider.IsSubAccount() {
		t.Fatal("logout must clear the in-memory session")
	}
	if _, ok := store.Get(KeySessionToken); ok {
		t.Fatal("logout must clear the token key")
	}
	if _, ok := store.Get(KeySessionData); ok {
		t.Fatal("logout must clear the data key")
	}
}
