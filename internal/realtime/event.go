// Package realtime listens for ticket-changed pushes and turns bursts of
// them into one coalesced reload.
package realtime

import (
	"encoding/json"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// TicketEvent is the payload published on the tickets topic.
type TicketEvent struct {
	Type          string           `json:"type"`
	TicketID      int64            `json:"ticketId"`
	ActorMemberID *int64           `json:"actorMemberId"`
	At            domain.Timestamp `json:"at"`
}

// ParseTicketEvent decodes a push payload. It reports false for malformed
// JSON and for events without a ticket id.
func ParseTicketEvent(data []byte) (TicketEvent, bool) {
	var evt TicketEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return TicketEvent{}, false
	}
	if evt.TicketID == 0 {
		return TicketEvent{}, false
	}
	return evt, true
}
