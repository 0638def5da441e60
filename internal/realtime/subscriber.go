package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TicketsTopic is the STOMP destination for ticket events.
	TicketsTopic = "/topic/tickets"
	// DefaultHeartbeat is the outgoing and expected incoming heart-beat.
	DefaultHeartbeat = 10 * time.Second
)

// Subscriber delivers raw event payloads to handle until ctx ends or the
// connection drops. It returns nil only when ctx was cancelled.
type Subscriber interface {
	Run(ctx context.Context, handle func([]byte)) error
}

// RedisSubscriber reads ticket events from a Redis pub/sub channel.
type RedisSubscriber struct {
	Client  *redis.Client
	Channel string
}

// Run subscribes and forwards message payloads.
func (s *RedisSubscriber) Run(ctx context.Context, handle func([]byte)) error {
	if s.Client == nil {
		return errors.New("realtime: redis client not configured")
	}
	pubsub := s.Client.Subscribe(ctx, s.Channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", s.Channel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("redis subscription closed")
			}
			handle([]byte(msg.Payload))
		}
	}
}
