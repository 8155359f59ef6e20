package subaccount

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("sub-account not found")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("sub-account disabled")
)

// Permissions describes what a sub-account may do with the owning account's
// documents.
type Permissions struct {
	PDFAccess    bool `json:"pdf_access"`
	DownloadOnly bool `json:"download_only"`
}

// SubAccount is a restricted credential set scoped to one main account. Its
// data-access scope is always the owning account's resources.
type SubAccount struct {
	ID            uuid.UUID   `json:"id"`
	MainAccountID uuid.UUID   `json:"main_account_id"`
	Username      string      `json:"username"`
	DisplayName   string      `json:"display_name"`
	PasswordHash  string      `json:"-"`
	Active        bool        `json:"is_active"`
	Permissions   Permissions `json:"permissions"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CreateInput carries the fields for creating a sub-account.
type CreateInput struct {
	MainAccountID uuid.UUID
	Username      string
	DisplayName   string
	Password      string
	Permissions   Permissions
}

// UpdateInput allows partial updates by the main-account holder.
type UpdateInput struct {
	ID            uuid.UUID
	MainAccountID uuid.UUID
	DisplayName   *string
	Active        *bool
	Permissions   *Permissions
}

// Session is the client-held result of a successful credential exchange: an
// opaque token plus a denormalized copy of the sub-account record.
type Session struct {
	Token      string     `json:"session_token"`
	SubAccount SubAccount `json:"sub_account"`
}

// LoginMeta carries request metadata recorded at credential exchange.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}
