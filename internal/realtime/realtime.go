package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// EventAdminMessage signals a new admin-authored ticket message.
	EventAdminMessage = "admin_message"
)

// Event is one realtime notification delivered to clients of an account.
type Event struct {
	Type      string    `json:"type"`
	AccountID uuid.UUID `json:"account_id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	MessageID uuid.UUID `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

func channelFor(accountID uuid.UUID) string {
	return "support:events:" + accountID.String()
}

// Broker publishes and subscribes to account-scoped events over Redis pub/sub.
type Broker struct {
	client *redis.Client
}

// NewBroker creates a broker over the shared Redis client.
func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Publish sends the event to every subscriber of the account's channel.
// Delivery is fire-and-forget; a miss only delays the next poll.
func (b *Broker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(event.AccountID), payload).Err()
}

// Subscribe delivers events for one account until ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, accountID uuid.UUID) <-chan Event {
	sub := b.client.Subscribe(ctx, channelFor(accountID))
	out := make(chan Event)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Msg("realtime: malformed event dropped")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
