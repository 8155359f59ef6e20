package subaccount

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/auth"
	"github.com/formsigner/api/internal/repo"
	"github.com/formsigner/api/internal/util"
)

type mainAccountSource interface {
	GetMainAccountByEmail(ctx context.Context, email string) (repo.MainAccount, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service concentrates sub-account rules: lifecycle managed by the main
// account holder, plus the credential exchange that opens sessions.
type Service struct {
	repo       Repository
	accounts   mainAccountSource
	redis      redisCommander
	sessionTTL time.Duration
}

// NewService creates a new service.
func NewService(r Repository, accounts mainAccountSource, redisClient redisCommander, sessionTTL time.Duration) *Service {
	return &Service{repo: r, accounts: accounts, redis: redisClient, sessionTTL: sessionTTL}
}

// Create registers a sub-account under the owning main account.
func (s *Service) Create(ctx context.Context, input CreateInput) (*SubAccount, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	if err := util.ValidateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Username
	}

	if existing, err := s.repo.GetByUsername(ctx, input.MainAccountID, input.Username); err == nil && existing != nil {
		return nil, ErrUsernameTaken
	}

	sub := SubAccount{
		ID:            uuid.New(),
		MainAccountID: input.MainAccountID,
		Username:      input.Username,
		DisplayName:   input.DisplayName,
		PasswordHash:  auth.HashSubAccountPassword(input.Password, input.MainAccountID),
		Active:        true,
		Permissions:   input.Permissions,
	}

	return s.repo.Create(ctx, sub)
}

// List returns the sub-accounts owned by one main account.
func (s *Service) List(ctx context.Context, mainAccountID uuid.UUID) ([]SubAccount, error) {
	return s.repo.ListByMainAccount(ctx, mainAccountID)
}

// Update changes display name, active flag and permissions.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*SubAccount, error) {
	if input.DisplayName != nil && strings.TrimSpace(*input.DisplayName) == "" {
		return nil, errors.New("display_name cannot be empty")
	}
	return s.repo.Update(ctx, input)
}

// Delete removes the sub-account.
func (s *Service) Delete(ctx context.Context, mainAccountID, id uuid.UUID) error {
	return s.repo.Delete(ctx, mainAccountID, id)
}

// ResetPassword computes and stores a new hash, overwriting the old one.
func (s *Service) ResetPassword(ctx context.Context, mainAccountID, id uuid.UUID, password string) error {
	if err := util.ValidatePassword(password); err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, mainAccountID, id, auth.HashSubAccountPassword(password, mainAccountID))
}

// Login performs the credential exchange: main-account e-mail plus sub-account
// username and password in, opaque session token plus the record out. Every
// failure class collapses to ErrInvalidCredentials for the caller.
func (s *Service) Login(ctx context.Context, mainAccountEmail, username, password string, meta LoginMeta) (*Session, error) {
	account, err := s.accounts.GetMainAccountByEmail(ctx, mainAccountEmail)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn().Err(err).Msg("subaccount login: main account lookup failed")
		}
		return nil, ErrInvalidCredentials
	}

	sub, err := s.repo.GetByUsername(ctx, account.ID, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("subaccount login: lookup failed")
		}
		return nil, ErrInvalidCredentials
	}

	if !auth.VerifySubAccountPassword(password, account.ID, sub.PasswordHash) {
		log.Warn().Str("username", sub.Username).Msg("subaccount login: wrong password")
		return nil, ErrInvalidCredentials
	}
	if !sub.Active {
		return nil, ErrAccountDisabled
	}

	rawToken, tokenHash, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sub.LastLoginAt = &now

	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.redis.Set(ctx, auth.SessionRedisKey(tokenHash), payload, s.sessionTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("subaccount login: session store failed")
		return nil, ErrInvalidCredentials
	}

	// Best effort; the session is already established.
	if err := s.repo.SetLastLogin(ctx, sub.ID, now); err != nil {
		log.Warn().Err(err).Msg("subaccount login: last_login_at update failed")
	}

	log.Info().
		Str("sub_account_id", sub.ID.String()).
		Str("ip", meta.IPAddress).
		Str("user_agent", meta.UserAgent).
		Msg("subaccount login")

	return &Session{Token: rawToken, SubAccount: *sub}, nil
}

// GetSession resolves a raw session token back to its sub-account record.
func (s *Service) GetSession(ctx context.Context, rawToken string) (*SubAccount, error) {
	if rawToken == "" {
		return nil, auth.ErrInvalidSession
	}

	payload, err := s.redis.Get(ctx, auth.SessionRedisKey(auth.HashSessionToken(rawToken))).Result()
	if err == redis.Nil {
		return nil, auth.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	var sub SubAccount
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return nil, auth.ErrInvalidSession
	}
	return &sub, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	err := s.redis.Del(ctx, auth.SessionRedisKey(auth.HashSessionToken(rawToken))).Err()
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}
