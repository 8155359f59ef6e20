package support

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formsigner/api/internal/db"
)

// Repository provides access to the support tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, account_id, subject, category, status, priority, created_at, updated_at, closed_at`

// CreateTicket inserts a new ticket.
func (r *Repository) CreateTicket(ctx context.Context, input CreateTicketInput) (*Ticket, error) {
	const query = `
        INSERT INTO support_tickets (account_id, subject, category, status, priority)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + ticketColumns + `
    `

	row := r.pool.QueryRow(ctx, query,
		input.AccountID,
		strings.TrimSpace(input.Subject),
		strings.TrimSpace(input.Category),
		StatusOpen,
		NormalizePriority(input.Priority),
	)

	return scanTicket(row)
}

// GetTicket fetches one ticket.
func (r *Repository) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM support_tickets
        WHERE id = $1
    `
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// ListTicketsByAccount lists all tickets owned by one account, newest first.
func (r *Repository) ListTicketsByAccount(ctx context.Context, accountID uuid.UUID) ([]Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM support_tickets
        WHERE account_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tickets, nil
}

// UpdateStatus changes the ticket status, maintaining closed_at.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, closedAt *time.Time) (*Ticket, error) {
	const query = `
        UPDATE support_tickets
        SET status = $2, closed_at = $3, updated_at = now()
        WHERE id = $1
        RETURNING ` + ticketColumns + `
    `
	return scanTicket(r.pool.QueryRow(ctx, query, id, status, closedAt))
}

// TouchRead bumps updated_at only. It is the server half of mark-as-read:
// clients without a local marker fall back to this timestamp.
func (r *Repository) TouchRead(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	const query = `
        UPDATE support_tickets
        SET updated_at = now()
        WHERE id = $1
        RETURNING ` + ticketColumns + `
    `
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

// CreateMessage inserts a message and bumps the ticket's updated_at in the
// same transaction.
func (r *Repository) CreateMessage(ctx context.Context, input CreateMessageInput) (*Message, error) {
	const query = `
        INSERT INTO support_ticket_messages (ticket_id, author_type, author_id, body)
        VALUES ($1, $2, $3, $4)
        RETURNING id, ticket_id, author_type, author_id, body, created_at
    `

	var msg *Message
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, query,
			input.TicketID,
			strings.ToLower(strings.TrimSpace(input.AuthorType)),
			input.AuthorID,
			strings.TrimSpace(input.Body),
		)

		scanned, err := scanMessage(row)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE support_tickets SET updated_at = now() WHERE id = $1`, input.TicketID); err != nil {
			return err
		}

		msg = scanned
		return nil
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// ListMessages lists a ticket's messages, oldest first.
func (r *Repository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]Message, error) {
	const query = `
        SELECT id, ticket_id, author_type, author_id, body, created_at
        FROM support_ticket_messages
        WHERE ticket_id = $1
        ORDER BY created_at ASC
    `

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return messages, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	if err := row.Scan(&t.ID, &t.AccountID, &t.Subject, &t.Category, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.TicketID, &m.AuthorType, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}
