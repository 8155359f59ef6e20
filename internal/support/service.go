package support

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/realtime"
)

type repository interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (*Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	ListTicketsByAccount(ctx context.Context, accountID uuid.UUID) ([]Ticket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, closedAt *time.Time) (*Ticket, error)
	TouchRead(ctx context.Context, id uuid.UUID) (*Ticket, error)
	CreateMessage(ctx context.Context, input CreateMessageInput) (*Message, error)
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]Message, error)
}

type publisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// Service holds the business rules for support tickets.
type Service struct {
	repo   repository
	events publisher
}

// NewService creates the service. events may be nil when realtime delivery is
// unavailable.
func NewService(repo repository, events publisher) *Service {
	return &Service{repo: repo, events: events}
}

// CreateTicket opens a new ticket with its first message.
func (s *Service) CreateTicket(ctx context.Context, input CreateTicketInput) (*Ticket, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Category = strings.TrimSpace(input.Category)
	input.Body = strings.TrimSpace(input.Body)
	input.Priority = NormalizePriority(input.Priority)

	if input.Subject == "" {
		return nil, errors.New("subject is required")
	}
	if input.Category == "" {
		return nil, errors.New("category is required")
	}
	if !IsValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}

	ticket, err := s.repo.CreateTicket(ctx, input)
	if err != nil {
		return nil, err
	}

	if input.Body != "" {
		accountID := input.AccountID
		if _, err := s.repo.CreateMessage(ctx, CreateMessageInput{
			TicketID:   ticket.ID,
			AuthorType: AuthorAccount,
			AuthorID:   &accountID,
			Body:       input.Body,
		}); err != nil {
			return nil, err
		}
	}

	return ticket, nil
}

// ListTickets lists the account's tickets.
func (s *Service) ListTickets(ctx context.Context, accountID uuid.UUID) ([]Ticket, error) {
	return s.repo.ListTicketsByAccount(ctx, accountID)
}

// GetTicket fetches one ticket scoped to its owner.
func (s *Service) GetTicket(ctx context.Context, accountID, id uuid.UUID) (*Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.AccountID != accountID {
		return nil, ErrNotFound
	}
	return ticket, nil
}

// UpdateStatus changes the ticket status, stamping closed_at for terminal
// states and clearing it on reopen.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Ticket, error) {
	status = NormalizeStatus(status)
	if !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var closedAt *time.Time
	switch status {
	case StatusResolved, StatusClosed:
		now := time.Now().UTC()
		closedAt = &now
	}

	return s.repo.UpdateStatus(ctx, id, status, closedAt)
}

// AddMessage appends a message. Admin-authored messages fan out as realtime
// events to the owning account.
func (s *Service) AddMessage(ctx context.Context, input CreateMessageInput) (*Message, error) {
	input.Body = strings.TrimSpace(input.Body)
	if input.Body == "" {
		return nil, errors.New("message body is required")
	}
	if input.AuthorType == "" {
		input.AuthorType = AuthorAccount
	}
	if !IsValidAuthor(input.AuthorType) {
		return nil, ErrInvalidAuthor
	}

	ticket, err := s.repo.GetTicket(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(ctx, input)
	if err != nil {
		return nil, err
	}

	if msg.AuthorType == AuthorAdmin && s.events != nil {
		event := realtime.Event{
			Type:      realtime.EventAdminMessage,
			AccountID: ticket.AccountID,
			TicketID:  ticket.ID,
			MessageID: msg.ID,
			CreatedAt: msg.CreatedAt,
		}
		if err := s.events.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("ticket_id", ticket.ID.String()).Msg("support: event publish failed")
		}
	}

	return msg, nil
}

// ListMessages lists a ticket's messages scoped to its owner.
func (s *Service) ListMessages(ctx context.Context, accountID, ticketID uuid.UUID) ([]Message, error) {
	if _, err := s.GetTicket(ctx, accountID, ticketID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, ticketID)
}

// MarkRead bumps the ticket's updated_at, the server-side half of the
// client's mark-as-read.
func (s *Service) MarkRead(ctx context.Context, accountID, ticketID uuid.UUID) (*Ticket, error) {
	if _, err := s.GetTicket(ctx, accountID, ticketID); err != nil {
		return nil, err
	}
	return s.repo.TouchRead(ctx, ticketID)
}
