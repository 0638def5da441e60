package tickets

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-client/internal/clock"
)

// HighlightKind separates freshly arrived tickets from navigation targets.
type HighlightKind string

const (
	// HighlightNew marks a ticket that appeared since the previous load.
	HighlightNew HighlightKind = "new"
	// HighlightJump marks the target of a notification or realtime jump.
	HighlightJump HighlightKind = "jump"
)

const (
	// NewHighlightDuration is how long a freshly arrived ticket stays marked.
	NewHighlightDuration = 3000 * time.Millisecond
	// NotificationJumpDuration is the highlight after opening a notification.
	NotificationJumpDuration = 1600 * time.Millisecond
	// RealtimeJumpHighlightDuration is the highlight after a pushed update.
	RealtimeJumpHighlightDuration = 3000 * time.Millisecond
)

type highlightTimer struct {
	seq   uint64
	timer *clock.Timer
}

type highlightState struct {
	seq     uint64
	newIDs  map[int64]bool
	jumpIDs map[int64]bool
	timers  map[string]highlightTimer
}

func (h *highlightState) reset() {
	for _, t := range h.timers {
		t.timer.Stop()
	}
	h.newIDs = make(map[int64]bool)
	h.jumpIDs = make(map[int64]bool)
	h.timers = make(map[string]highlightTimer)
}

func (h *highlightState) set(kind HighlightKind) map[int64]bool {
	if kind == HighlightNew {
		return h.newIDs
	}
	return h.jumpIDs
}

func highlightKey(kind HighlightKind, ticketID int64) string {
	return fmt.Sprintf("%s-%d", kind, ticketID)
}

// HighlightTicket marks a ticket for d. Retriggering the same kind on the
// same ticket replaces the pending expiry. It does nothing when signed out.
func (s *Store) HighlightTicket(ticketID int64, kind HighlightKind, d time.Duration) {
	if !s.session.IsAuthenticated() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlightLocked(ticketID, kind, d)
}

func (s *Store) highlightLocked(ticketID int64, kind HighlightKind, d time.Duration) {
	if kind != HighlightNew {
		kind = HighlightJump
	}
	key := highlightKey(kind, ticketID)
	if prev, ok := s.highlights.timers[key]; ok {
		prev.timer.Stop()
	}
	s.highlights.set(kind)[ticketID] = true
	s.highlights.seq++
	seq := s.highlights.seq
	timer := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := s.highlights.timers[key]
		if !ok || current.seq != seq {
			return
		}
		delete(s.highlights.set(kind), ticketID)
		delete(s.highlights.timers, key)
	})
	s.highlights.timers[key] = highlightTimer{seq: seq, timer: timer}
}

// IsNewHighlighted reports an active "new" highlight.
func (s *Store) IsNewHighlighted(ticketID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlights.newIDs[ticketID]
}

// IsJumpHighlighted reports an active "jump" highlight.
func (s *Store) IsJumpHighlighted(ticketID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlights.jumpIDs[ticketID]
}

// PendingHighlights counts highlight timers that have not fired.
func (s *Store) PendingHighlights() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.highlights.timers)
}
