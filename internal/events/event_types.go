package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketReplied       EventType = "ticket.replied"
	EventTicketDeleted       EventType = "ticket.deleted"
	EventTicketApproved      EventType = "ticket.approved"
	EventSessionStarted      EventType = "session.started"
	EventSessionCleared      EventType = "session.cleared"
	EventNotificationsRead   EventType = "notifications.read_all"
	EventRealtimeReload      EventType = "realtime.reload"
)

// AllEventTypes lists every event the client emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketReplied,
	EventTicketDeleted,
	EventTicketApproved,
	EventSessionStarted,
	EventSessionCleared,
	EventNotificationsRead,
	EventRealtimeReload,
}

// Event represents a state transition observed by the client.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	TicketID      int64     `json:"ticket_id,omitempty"`
	ActorMemberID *int64    `json:"actor_member_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, ticketID int64, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject     string                `json:"subject"`
	Priority    domain.TicketPriority `json:"priority"`
	GroupID     *int64                `json:"group_id,omitempty"`
	Attachments int                   `json:"attachments"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketRepliedPayload payload.
type TicketRepliedPayload struct {
	BodyPreview  string `json:"body_preview"`
	MessageCount int    `json:"message_count"`
}

// SessionPayload payload.
type SessionPayload struct {
	MemberID   int64       `json:"member_id,omitempty"`
	EmployeeID string      `json:"employee_id,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
}

// RealtimeReloadPayload payload.
type RealtimeReloadPayload struct {
	Signals int `json:"signals"`
}
