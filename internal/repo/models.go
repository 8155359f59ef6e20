package repo

import (
	"time"

	"github.com/google/uuid"
)

// MainAccount is the primary tenant that owns forms, templates, documents and
// sub-accounts.
type MainAccount struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}
