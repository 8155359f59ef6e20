package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/subaccount"
)

// Storage keys. The provider owns this namespace exclusively.
const (
	KeySessionToken = "sub_account_session_token"
	KeySessionData  = "sub_account_data"
)

// exchanger performs the remote credential exchange. The API client
// implements it; tests stub it.
type exchanger interface {
	SubAccountLogin(ctx context.Context, mainAccountEmail, username, password string) (*subaccount.Session, error)
	SubAccountMe(ctx context.Context, token string) (*subaccount.SubAccount, error)
}

// Provider holds the sub-account session for one client. It restores
// persisted state synchronously and optimistically: presence of a stored
// token means "is a sub-account" before any validation runs.
type Provider struct {
	store    Store
	api      exchanger
	trust    bool
	mu       sync.Mutex
	token    string
	current  *subaccount.SubAccount
	restored bool
}

// NewProvider creates the provider and immediately restores any persisted
// session. Restoration never touches the network.
func NewProvider(store Store, api exchanger, trustOnRestore bool) *Provider {
	p := &Provider{store: store, api: api, trust: trustOnRestore}
	p.restore()
	return p
}

// restore reads both storage keys. Malformed data counts as corruption: both
// keys are cleared and the client proceeds logged out.
func (p *Provider) restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restored = true

	token, okToken := p.store.Get(KeySessionToken)
	raw, okData := p.store.Get(KeySessionData)
	if !okToken || !okData || token == "" {
		return
	}

	var sub subaccount.SubAccount
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		log.Warn().Err(err).Msg("session: stored record corrupted, clearing")
		p.store.Delete(KeySessionToken)
		p.store.Delete(KeySessionData)
		return
	}

	p.token = token
	p.current = &sub
}

// Login runs the credential exchange and persists the session. Any failure
// collapses to a single error for the caller.
func (p *Provider) Login(ctx context.Context, mainAccountEmail, username, password string) error {
	sess, err := p.api.SubAccountLogin(ctx, mainAccountEmail, username, password)
	if err != nil {
		return subaccount.ErrInvalidCredentials
	}

	raw, err := json.Marshal(sess.SubAccount)
	if err != nil {
		return subaccount.ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Set(KeySessionToken, sess.Token); err != nil {
		return err
	}
	if err := p.store.Set(KeySessionData, string(raw)); err != nil {
		return err
	}
	p.token = sess.Token
	sub := sess.SubAccount
	p.current = &sub
	return nil
}

// Logout clears storage and in-memory state.
func (p *Provider) Logout() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store.Delete(KeySessionToken)
	p.store.Delete(KeySessionData)
	p.token = ""
	p.current = nil
}

// IsSubAccount reports whether a session is present, valid or not.
func (p *Provider) IsSubAccount() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != "" && p.current != nil
}

// Token returns the current session token.
func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Current returns a copy of the restored sub-account record.
func (p *Provider) Current() *subaccount.SubAccount {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	sub := *p.current
	return &sub
}

// Validate checks the session against the backend. With trust-on-restore set
// (the default) it always reports valid, including when the backend is not
// configured: availability wins over strict correctness. It never clears the
// session itself; a forced logout is always an explicit caller decision.
func (p *Provider) Validate(ctx context.Context) bool {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return false
	}
	if p.trust || p.api == nil {
		return true
	}

	if _, err := p.api.SubAccountMe(ctx, token); err != nil {
		log.Warn().Err(err).Msg("session: validation probe failed")
		return false
	}
	return true
}
