// Package tickets is the client-side ticket store: the normalized ticket
// collection, its derived views, every ticket mutation and the per-ticket UI
// bookkeeping (drafts, expand state, highlights, lightbox).
package tickets

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	// MaxFileBytes is the exclusive upper bound for an attachment size.
	MaxFileBytes = 5 * 1024 * 1024
	// RetainAfterSubmit bounds the list after a local prepend.
	RetainAfterSubmit = 20
)

// Session is the slice of session state the store reads.
type Session interface {
	CurrentMember() *domain.Member
	IsAuthenticated() bool
	Generation() uint64
}

// RefData supplies groups and categories for defaults and supervisor checks.
type RefData interface {
	MyGroups() []domain.MyGroup
	Categories() []domain.HelpdeskCategory
	IsSupervisorOf(groupID *int64) bool
}

// Confirmer gates destructive actions on an explicit affirmative answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Options configures a Store.
type Options struct {
	Client  *apiclient.Client
	Session Session
	RefData RefData
	Clock   clock.Clock
	Logger  *zap.Logger
	Events  events.Dispatcher
}

// Store is the single source of truth for tickets.
type Store struct {
	client  *apiclient.Client
	session Session
	refs    RefData
	clock   clock.Clock
	logger  *zap.Logger
	events  events.Dispatcher

	mu            sync.Mutex
	tickets       []domain.Ticket
	loading       bool
	submitting    int
	statusDrafts  map[int64]domain.TicketStatus
	replyDrafts   map[int64]string
	openTickets   map[int64]bool
	actionLoading map[int64]int
	highlights    highlightState
	filters       Filters
	form          Form
	files         []apiclient.Upload
	lightbox      Lightbox

	ticketFeedback feedback.Status
	itFeedback     feedback.Text
}

// NewStore constructs an empty Store.
func NewStore(opts Options) *Store {
	s := &Store{
		client:  opts.Client,
		session: opts.Session,
		refs:    opts.RefData,
		clock:   opts.Clock,
		logger:  opts.Logger,
		events:  opts.Events,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.tickets = nil
	s.loading = false
	s.submitting = 0
	s.statusDrafts = make(map[int64]domain.TicketStatus)
	s.replyDrafts = make(map[int64]string)
	s.openTickets = make(map[int64]bool)
	s.actionLoading = make(map[int64]int)
	s.highlights.reset()
	s.filters = DefaultFilters()
	s.form = Form{Priority: domain.TicketPriorityGeneral}
	s.files = nil
	s.lightbox = Lightbox{}
}

// Clear drops every ticket and all per-ticket UI state, cancels pending
// highlight timers and closes the lightbox.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.ticketFeedback.Clear()
	s.itFeedback.Clear()
}

// ReplaceTicket swaps in a server-confirmed ticket by id. Unknown ids are
// ignored.
func (s *Store) ReplaceTicket(updated domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(updated)
}

func (s *Store) replaceLocked(updated domain.Ticket) domain.Ticket {
	normalized := NormalizeTicket(updated)
	for i := range s.tickets {
		if s.tickets[i].ID == normalized.ID {
			s.tickets[i] = normalized
		}
	}
	s.statusDrafts[normalized.ID] = EffectiveStatus(normalized)
	if _, ok := s.openTickets[normalized.ID]; !ok {
		s.openTickets[normalized.ID] = false
	}
	return normalized
}

func (s *Store) findLocked(id int64) (domain.Ticket, bool) {
	for _, t := range s.tickets {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Ticket{}, false
}

func (s *Store) seedScaffoldingLocked(t domain.Ticket) {
	s.statusDrafts[t.ID] = EffectiveStatus(t)
	if _, ok := s.replyDrafts[t.ID]; !ok {
		s.replyDrafts[t.ID] = ""
	}
	if _, ok := s.openTickets[t.ID]; !ok {
		s.openTickets[t.ID] = false
	}
}

func (s *Store) beginAction(id int64) {
	s.actionLoading[id]++
}

func (s *Store) endAction(id int64) {
	if s.actionLoading[id] <= 1 {
		delete(s.actionLoading, id)
		return
	}
	s.actionLoading[id]--
}

func (s *Store) publish(ctx context.Context, eventType events.EventType, ticketID int64, payload any) {
	evt := events.New(eventType, ticketID, s.clock.Now(), payload)
	if member := s.session.CurrentMember(); member != nil {
		id := member.ID
		evt.ActorMemberID = &id
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish ticket event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func notFound(id int64) error {
	return errorutil.NewNotFound("ticket", map[string]any{"id": id})
}

// Tickets returns copies of every ticket in list order.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, len(s.tickets))
	for i, t := range s.tickets {
		out[i] = t.Clone()
	}
	return out
}

// Ticket returns a copy of one ticket.
func (s *Store) Ticket(id int64) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.findLocked(id)
	if !ok {
		return domain.Ticket{}, false
	}
	return t.Clone(), true
}

// Loading reports an in-flight LoadTickets.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Submitting reports at least one in-flight SubmitTicket.
func (s *Store) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting > 0
}

// ActionLoading reports an in-flight mutation on the ticket.
func (s *Store) ActionLoading(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actionLoading[id] > 0
}

// StatusDraft returns the drafted status for a ticket.
func (s *Store) StatusDraft(id int64) (domain.TicketStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statusDrafts[id]
	return status, ok
}

// SetStatusDraft drafts a status for a later UpdateTicketStatus.
func (s *Store) SetStatusDraft(id int64, status domain.TicketStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusDrafts[id] = status
}

// StatusDrafts returns a copy of every status draft.
func (s *Store) StatusDrafts() map[int64]domain.TicketStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]domain.TicketStatus, len(s.statusDrafts))
	for k, v := range s.statusDrafts {
		out[k] = v
	}
	return out
}

// ReplyDraft returns the unsent reply for a ticket.
func (s *Store) ReplyDraft(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyDrafts[id]
}

// SetReplyDraft records reply text for a ticket.
func (s *Store) SetReplyDraft(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replyDrafts[id] = text
}

// IsOpen reports whether a ticket is expanded.
func (s *Store) IsOpen(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTickets[id]
}

// ToggleTicket flips the expand state.
func (s *Store) ToggleTicket(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openTickets[id] = !s.openTickets[id]
}

// OpenTicket expands a ticket. It does nothing when signed out.
func (s *Store) OpenTicket(id int64) {
	if !s.session.IsAuthenticated() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openTickets[id] = true
}

// TicketFeedback returns the submit/load message and its type.
func (s *Store) TicketFeedback() (string, feedback.Type) {
	return s.ticketFeedback.Snapshot()
}

// ITFeedback returns the last per-ticket action failure.
func (s *Store) ITFeedback() string {
	return s.itFeedback.Message()
}

// Now returns the store clock's time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}
