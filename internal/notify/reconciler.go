// Package notify computes the client-visible unread count for support
// tickets. A message counts as unread iff it is admin-authored and strictly
// newer than the effective read time: the local marker when present, else the
// ticket's server updated_at. The fallback means an unrelated updated_at bump
// retroactively marks prior admin messages read on clients without a marker;
// preserved for compatibility with existing stored data.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/formsigner/api/internal/realtime"
	"github.com/formsigner/api/internal/support"
)

// ReadMarkerPrefix namespaces the per-ticket read markers in client storage.
const ReadMarkerPrefix = "ticket_read_time:"

// TicketSource supplies the remote side of reconciliation. The API client
// implements it.
type TicketSource interface {
	ListTickets(ctx context.Context) ([]support.Ticket, error)
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]support.Message, error)
	MarkRead(ctx context.Context, ticketID uuid.UUID) error
}

// markerStore is the slice of client storage the reconciler owns.
type markerStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Reconciler recomputes unread counts on start, on a fixed poll and on
// realtime admin-message events.
type Reconciler struct {
	source   TicketSource
	markers  markerStore
	interval time.Duration

	mu     sync.Mutex
	unread map[uuid.UUID]int
	total  int

	once   sync.Once
	cancel context.CancelFunc
}

// NewReconciler creates the reconciler. interval <= 0 defaults to 30s.
func NewReconciler(source TicketSource, markers markerStore, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		source:   source,
		markers:  markers,
		interval: interval,
		unread:   make(map[uuid.UUID]int),
	}
}

// Start launches the poll loop and event listener. Safe to call repeatedly.
func (r *Reconciler) Start(parent context.Context, events <-chan realtime.Event) {
	r.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		r.cancel = cancel
		go r.runLoop(ctx, events)
	})
}

// Stop ends the background loop.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Reconciler) runLoop(ctx context.Context, events <-chan realtime.Event) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("notify: initial refresh failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("notify: poll refresh failed")
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Type != realtime.EventAdminMessage {
				continue
			}
			if err := r.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("notify: event refresh failed")
			}
		}
	}
}

// Refresh recomputes every ticket's unread count from the server state plus
// local markers. A fetch error leaves the previous counts in place.
func (r *Reconciler) Refresh(ctx context.Context) error {
	tickets, err := r.source.ListTickets(ctx)
	if err != nil {
		return err
	}

	unread := make(map[uuid.UUID]int, len(tickets))
	total := 0
	for _, ticket := range tickets {
		messages, err := r.source.ListMessages(ctx, ticket.ID)
		if err != nil {
			return err
		}
		n := r.countUnread(ticket, messages)
		unread[ticket.ID] = n
		total += n
	}

	r.mu.Lock()
	r.unread = unread
	r.total = total
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) countUnread(ticket support.Ticket, messages []support.Message) int {
	readTime := r.effectiveReadTime(ticket)
	n := 0
	for _, msg := range messages {
		if msg.AuthorType != support.AuthorAdmin {
			continue
		}
		if msg.CreatedAt.After(readTime) {
			n++
		}
	}
	return n
}

// effectiveReadTime prefers the local marker over the server updated_at.
func (r *Reconciler) effectiveReadTime(ticket support.Ticket) time.Time {
	raw, ok := r.markers.Get(ReadMarkerPrefix + ticket.ID.String())
	if ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
	}
	return ticket.UpdatedAt
}

// MarkRead writes the local marker immediately, zeroes the ticket's count,
// then issues the best-effort server update. The local marker stays
// authoritative for this client even if the server write fails, so the
// visible count is monotonically non-increasing from the user's action.
func (r *Reconciler) MarkRead(ctx context.Context, ticketID uuid.UUID) {
	now := time.Now().UTC()
	if err := r.markers.Set(ReadMarkerPrefix+ticketID.String(), now.Format(time.RFC3339Nano)); err != nil {
		log.Warn().Err(err).Msg("notify: local read marker write failed")
	}

	r.mu.Lock()
	if prev, ok := r.unread[ticketID]; ok {
		r.total -= prev
		r.unread[ticketID] = 0
	}
	r.mu.Unlock()

	if err := r.source.MarkRead(ctx, ticketID); err != nil {
		log.Warn().Err(err).Str("ticket_id", ticketID.String()).Msg("notify: server read update failed")
	}
}

// UnreadTotal is the sum over all tickets.
func (r *Reconciler) UnreadTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// UnreadFor returns one ticket's count.
func (r *Reconciler) UnreadFor(ticketID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread[ticketID]
}
