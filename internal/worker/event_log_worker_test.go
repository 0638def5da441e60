package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
)

func TestEventLogRecordsEveryType(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	log := NewEventLog(dispatcher, zap.New(core), 0)
	StartEventLogWorker(log)

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, eventType := range events.AllEventTypes {
		require.NoError(t, dispatcher.Publish(context.Background(), events.New(eventType, 4, at, nil)))
	}

	assert.Len(t, log.Recent(), len(events.AllEventTypes))
	assert.Equal(t, 1, log.Count(events.EventTicketCreated))
	assert.Equal(t, len(events.AllEventTypes), logs.FilterMessage("client event").Len())
}

func TestEventLogFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	StartEventLogWorker(NewEventLog(dispatcher, zap.New(core), 0))

	actor := int64(9)
	evt := events.New(events.EventTicketStatusChanged, 12, time.Now(), events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusClosed,
	})
	evt.ActorMemberID = &actor
	require.NoError(t, dispatcher.Publish(context.Background(), evt))
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventRealtimeReload, 0, time.Now(), nil)))

	entries := logs.All()
	require.Len(t, entries, 1, "realtime reloads log at debug")
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(12), fields["ticket_id"])
	assert.Equal(t, int64(9), fields["actor_member_id"])
	assert.Equal(t, string(events.EventTicketStatusChanged), fields["event_type"])
}

func TestEventLogKeepsNewest(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	log := NewEventLog(dispatcher, nil, 3)
	log.RegisterHandlers()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketReplied, id, time.Now(), nil)))
	}

	recent := log.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, int64(3), recent[0].TicketID)
	assert.Equal(t, int64(5), recent[2].TicketID)
	assert.Equal(t, 5, log.Count(events.EventTicketReplied))
}

func TestStartEventLogWorkerNil(t *testing.T) {
	assert.NotPanics(t, func() { StartEventLogWorker(nil) })
}
