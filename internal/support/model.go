package support

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("ticket not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidAuthor   = errors.New("invalid author type")
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	AuthorAdmin   = "admin"
	AuthorAccount = "account"
	AuthorSystem  = "system"
)

var (
	validStatuses = map[string]struct{}{
		StatusOpen:       {},
		StatusInProgress: {},
		StatusResolved:   {},
		StatusClosed:     {},
	}
	validPriorities = map[string]struct{}{
		PriorityLow:    {},
		PriorityNormal: {},
		PriorityHigh:   {},
		PriorityUrgent: {},
	}
	validAuthorTypes = map[string]struct{}{
		AuthorAdmin:   {},
		AuthorAccount: {},
		AuthorSystem:  {},
	}
)

// Ticket is a support request opened by a main account. updated_at doubles as
// the server-side read marker fallback for unread reconciliation.
type Ticket struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Subject   string     `json:"subject"`
	Category  string     `json:"category"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Message is one interaction on a ticket.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	TicketID   uuid.UUID  `json:"ticket_id"`
	AuthorType string     `json:"author_type"`
	AuthorID   *uuid.UUID `json:"author_id,omitempty"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateTicketInput carries the fields for opening a ticket.
type CreateTicketInput struct {
	AccountID uuid.UUID
	Subject   string
	Category  string
	Body      string
	Priority  string
}

// CreateMessageInput carries a new ticket message.
type CreateMessageInput struct {
	TicketID   uuid.UUID
	AuthorType string
	AuthorID   *uuid.UUID
	Body       string
}

// NormalizeStatus lowers and defaults the status.
func NormalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusOpen
	}
	return status
}

// NormalizePriority lowers and defaults the priority.
func NormalizePriority(priority string) string {
	priority = strings.ToLower(strings.TrimSpace(priority))
	if priority == "" {
		return PriorityNormal
	}
	return priority
}

// IsValidStatus reports whether the status is accepted.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// IsValidPriority reports whether the priority is accepted.
func IsValidPriority(priority string) bool {
	_, ok := validPriorities[strings.ToLower(strings.TrimSpace(priority))]
	return ok
}

// IsValidAuthor reports whether the author type is accepted.
func IsValidAuthor(author string) bool {
	_, ok := validAuthorTypes[strings.ToLower(strings.TrimSpace(author))]
	return ok
}
