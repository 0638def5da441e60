package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/events"
)

// DefaultHistory is how many recent events the log keeps for inspection.
const DefaultHistory = 50

// EventLog records client state transitions to the structured log and keeps
// the most recent ones in memory.
type EventLog struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	limit      int

	mu     sync.Mutex
	recent []events.Event
	counts map[events.EventType]int
}

// NewEventLog creates the worker.
func NewEventLog(dispatcher events.Dispatcher, logger *zap.Logger, limit int) *EventLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &EventLog{
		dispatcher: dispatcher,
		logger:     logger,
		limit:      limit,
		counts:     make(map[events.EventType]int),
	}
}

// StartEventLogWorker registers the event log handlers.
func StartEventLogWorker(log *EventLog) {
	if log == nil {
		return
	}
	log.RegisterHandlers()
}

// RegisterHandlers subscribes to every client event.
func (l *EventLog) RegisterHandlers() {
	if l.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		l.dispatcher.Subscribe(eventType, l.handle)
	}
}

func (l *EventLog) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload),
	}
	if event.TicketID != 0 {
		fields = append(fields, zap.Int64("ticket_id", event.TicketID))
	}
	if event.ActorMemberID != nil {
		fields = append(fields, zap.Int64("actor_member_id", *event.ActorMemberID))
	}

	switch event.Type {
	case events.EventRealtimeReload, events.EventNotificationsRead:
		l.logger.Debug("client event", fields...)
	default:
		l.logger.Info("client event", fields...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[event.Type]++
	l.recent = append(l.recent, event)
	if over := len(l.recent) - l.limit; over > 0 {
		l.recent = append([]events.Event{}, l.recent[over:]...)
	}
	return nil
}

// Recent returns the retained events, oldest first.
func (l *EventLog) Recent() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Event{}, l.recent...)
}

// Count returns how many events of eventType have been seen.
func (l *EventLog) Count(eventType events.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[eventType]
}
