package support

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/formsigner/api/internal/realtime"
)

type stubSupportRepo struct {
	tickets  map[uuid.UUID]*Ticket
	messages map[uuid.UUID][]Message
}

func newStubSupportRepo() *stubSupportRepo {
	return &stubSupportRepo{
		tickets:  make(map[uuid.UUID]*Ticket),
		messages: make(map[uuid.UUID][]Message),
	}
}

func (s *stubSupportRepo) CreateTicket(_ context.Context, input CreateTicketInput) (*Ticket, error) {
	now := time.Now().UTC()
	ticket := &Ticket{
		ID:        uuid.New(),
		AccountID: input.AccountID,
		Subject:   input.Subject,
		Category:  input.Category,
		Status:    StatusOpen,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *stubSupportRepo) GetTicket(_ context.Context, id uuid.UUID) (*Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *stubSupportRepo) ListTicketsByAccount(_ context.Context, accountID uuid.UUID) ([]Ticket, error) {
	var out []Ticket
	for _, ticket := range s.tickets {
		if ticket.AccountID == accountID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (s *stubSupportRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, closedAt *time.Time) (*Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket.Status = status
	ticket.ClosedAt = closedAt
	ticket.UpdatedAt = time.Now().UTC()
	copied := *ticket
	return &copied, nil
}

func (s *stubSupportRepo) TouchRead(_ context.Context, id uuid.UUID) (*Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket.UpdatedAt = time.Now().UTC()
	copied := *ticket
	return &copied, nil
}

func (s *stubSupportRepo) CreateMessage(_ context.Context, input CreateMessageInput) (*Message, error) {
	msg := Message{
		ID:         uuid.New(),
		TicketID:   input.TicketID,
		AuthorType: input.AuthorType,
		AuthorID:   input.AuthorID,
		Body:       input.Body,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages[input.TicketID] = append(s.messages[input.TicketID], msg)
	if ticket, ok := s.tickets[input.TicketID]; ok {
		ticket.UpdatedAt = msg.CreatedAt
	}
	return &msg, nil
}

func (s *stubSupportRepo) ListMessages(_ context.Context, ticketID uuid.UUID) ([]Message, error) {
	return s.messages[ticketID], nil
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event realtime.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestCreateTicketWithFirstMessage(t *testing.T) {
	repo := newStubSupportRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	accountID := uuid.New()

	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: accountID,
		Subject:   "Signature field missing",
		Category:  "bug",
		Body:      "The signer name never renders.",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Status != StatusOpen {
		t.Fatalf("new ticket must open, got %s", ticket.Status)
	}
	if ticket.Priority != PriorityNormal {
		t.Fatalf("empty priority must default to normal, got %s", ticket.Priority)
	}

	messages, err := svc.ListMessages(ctx, accountID, ticket.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].AuthorType != AuthorAccount {
		t.Fatal("the opening body must become the first account message")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc := NewService(newStubSupportRepo(), nil)
	ctx := context.Background()

	if _, err := svc.CreateTicket(ctx, CreateTicketInput{AccountID: uuid.New(), Category: "bug"}); err == nil {
		t.Fatal("expected missing subject rejection")
	}
	if _, err := svc.CreateTicket(ctx, CreateTicketInput{AccountID: uuid.New(), Subject: "x"}); err == nil {
		t.Fatal("expected missing category rejection")
	}
	if _, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: uuid.New(), Subject: "x", Category: "bug", Priority: "asap",
	}); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestAdminMessagePublishesEvent(t *testing.T) {
	repo := newStubSupportRepo()
	publisher := &recordingPublisher{}
	svc := NewService(repo, publisher)
	ctx := context.Background()
	accountID := uuid.New()

	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: accountID, Subject: "Help", Category: "question",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, err := svc.AddMessage(ctx, CreateMessageInput{
		TicketID: ticket.ID, AuthorType: AuthorAccount, Body: "any update?",
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatal("account messages must not fan out")
	}

	msg, err := svc.AddMessage(ctx, CreateMessageInput{
		TicketID: ticket.ID, AuthorType: AuthorAdmin, Body: "looking into it",
	})
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != realtime.EventAdminMessage || event.AccountID != accountID || event.MessageID != msg.ID {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestTicketAccessScopedToOwner(t *testing.T) {
	repo := newStubSupportRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	owner := uuid.New()
	stranger := uuid.New()

	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: owner, Subject: "Help", Category: "question",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, err := svc.GetTicket(ctx, stranger, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign ticket must look missing, got %v", err)
	}
	if _, err := svc.ListMessages(ctx, stranger, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign messages must look missing, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, stranger, ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign mark-read must look missing, got %v", err)
	}
}

func TestMarkReadBumpsUpdatedAt(t *testing.T) {
	repo := newStubSupportRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	accountID := uuid.New()

	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: accountID, Subject: "Help", Category: "question",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	before := ticket.UpdatedAt

	time.Sleep(time.Millisecond)
	bumped, err := svc.MarkRead(ctx, accountID, ticket.ID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !bumped.UpdatedAt.After(before) {
		t.Fatal("mark-read must advance updated_at")
	}
}

func TestUpdateStatusStampsClosedAt(t *testing.T) {
	repo := newStubSupportRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, CreateTicketInput{
		AccountID: uuid.New(), Subject: "Help", Category: "question",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	closed, err := svc.UpdateStatus(ctx, ticket.ID, StatusClosed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatal("closing must stamp closed_at")
	}

	reopened, err := svc.UpdateStatus(ctx, ticket.ID, StatusOpen)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if reopened.ClosedAt != nil {
		t.Fatal("reopening must clear closed_at")
	}

	if _, err := svc.UpdateStatus(ctx, ticket.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
