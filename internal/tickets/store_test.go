package tickets

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/internal/testutil"
)

var epoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeRefs struct {
	groups     []domain.MyGroup
	categories []domain.HelpdeskCategory
}

func (f *fakeRefs) MyGroups() []domain.MyGroup { return f.groups }

func (f *fakeRefs) Categories() []domain.HelpdeskCategory { return f.categories }

func (f *fakeRefs) IsSupervisorOf(groupID *int64) bool {
	if groupID == nil {
		return false
	}
	for _, g := range f.groups {
		if g.ID == *groupID && g.Supervisor {
			return true
		}
	}
	return false
}

type fixture struct {
	backend *testutil.Backend
	session *testutil.Session
	refs    *fakeRefs
	clock   *clock.FakeClock
	events  events.Dispatcher
	store   *Store
}

func newFixture(t *testing.T, member *domain.Member) *fixture {
	t.Helper()
	f := &fixture{
		backend: testutil.NewBackend(t),
		session: testutil.NewSession(member),
		refs: &fakeRefs{
			groups:     []domain.MyGroup{{ID: 10, Name: "Ops", Supervisor: true}, {ID: 20, Name: "Desk"}},
			categories: []domain.HelpdeskCategory{{ID: 5, Name: "Network"}},
		},
		clock:  clock.Fake(epoch),
		events: events.NewInMemoryDispatcher(),
	}
	f.store = NewStore(Options{
		Client:  f.backend.Client("tok"),
		Session: f.session,
		RefData: f.refs,
		Clock:   f.clock,
		Events:  f.events,
	})
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func ticket(id int64, status domain.TicketStatus) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		Name:        "Requester",
		Email:       "req@example.com",
		Subject:     "Subject " + string(status),
		Description: "Description",
		Status:      status,
		Priority:    domain.TicketPriorityGeneral,
		CreatedAt:   domain.NewTimestamp(epoch.Add(time.Duration(id) * time.Minute)),
	}
}

func (f *fixture) serveTickets(list ...domain.Ticket) {
	f.backend.JSON(http.MethodGet, ticketsPath, http.StatusOK, list)
}

func (f *fixture) load(t *testing.T, list ...domain.Ticket) {
	t.Helper()
	f.serveTickets(list...)
	require.NoError(t, f.store.LoadTickets(context.Background()))
}

func TestLoadTicketsNormalizesAndSeedsScaffolding(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	raw := ticket(1, "weird")
	raw.Priority = "urgent"
	deleted := ticket(2, domain.TicketStatusProceeding)
	deleted.Deleted = true
	f.load(t, raw, deleted)

	list := f.store.Tickets()
	require.Len(t, list, 2)
	assert.Equal(t, domain.TicketStatusOpen, list[0].Status)
	assert.Equal(t, domain.TicketPriorityUrgent, list[0].Priority)
	assert.False(t, list[0].SupervisorApproved)

	draft, ok := f.store.StatusDraft(2)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusDeleted, draft)
	assert.False(t, f.store.IsOpen(1))
	assert.False(t, f.store.IsNewHighlighted(1), "first load highlights nothing")
}

func TestLoadTicketsKeepsOpenStateAndReplyDrafts(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	f.store.ToggleTicket(1)
	f.store.SetReplyDraft(1, "half written")

	f.load(t, ticket(1, domain.TicketStatusOpen), ticket(2, domain.TicketStatusOpen))

	assert.True(t, f.store.IsOpen(1))
	assert.Equal(t, "half written", f.store.ReplyDraft(1))
	assert.True(t, f.store.IsNewHighlighted(2))
	assert.False(t, f.store.IsNewHighlighted(1))

	f.clock.Advance(NewHighlightDuration)
	assert.False(t, f.store.IsNewHighlighted(2))
	assert.Zero(t, f.store.PendingHighlights())
}

func TestLoadTicketsFailureKeepsList(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))

	f.backend.JSON(http.MethodGet, ticketsPath, http.StatusInternalServerError, map[string]string{"message": "db down"})
	err := f.store.LoadTickets(context.Background())
	require.Error(t, err)

	assert.Len(t, f.store.Tickets(), 1)
	msg, kind := f.store.TicketFeedback()
	assert.Equal(t, "db down", msg)
	assert.Equal(t, feedback.TypeError, kind)
	assert.False(t, f.store.Loading())
}

func TestLoadTicketsFallbackMessage(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.backend.Handle(http.MethodGet, ticketsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>"))
	})
	require.Error(t, f.store.LoadTickets(context.Background()))
	msg, _ := f.store.TicketFeedback()
	assert.Equal(t, "讀取工單失敗", msg)
}

func TestLoadTicketsDiscardedAfterSessionReset(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.backend.Handle(http.MethodGet, ticketsPath, func(w http.ResponseWriter, _ *http.Request) {
		f.session.Reset()
		testutil.WriteJSON(w, http.StatusOK, []domain.Ticket{ticket(1, domain.TicketStatusOpen)})
	})
	require.NoError(t, f.store.LoadTickets(context.Background()))
	assert.Empty(t, f.store.Tickets())
}

func TestReplaceTicketIgnoresUnknownIDs(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))

	f.store.ReplaceTicket(ticket(99, domain.TicketStatusClosed))
	assert.Len(t, f.store.Tickets(), 1)

	updated := ticket(1, domain.TicketStatusClosed)
	f.store.ReplaceTicket(updated)
	got, ok := f.store.Ticket(1)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
	draft, _ := f.store.StatusDraft(1)
	assert.Equal(t, domain.TicketStatusClosed, draft)
}

func TestHighlightRetriggerReplacesTimer(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.store.HighlightTicket(7, HighlightJump, time.Second)
	f.clock.Advance(800 * time.Millisecond)
	f.store.HighlightTicket(7, HighlightJump, time.Second)

	f.clock.Advance(300 * time.Millisecond)
	assert.True(t, f.store.IsJumpHighlighted(7), "first timer must not clear the retriggered highlight")
	assert.Equal(t, 1, f.store.PendingHighlights())

	f.clock.Advance(700 * time.Millisecond)
	assert.False(t, f.store.IsJumpHighlighted(7))
}

func TestHighlightAndOpenIgnoredWhenSignedOut(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(5, domain.TicketStatusOpen))
	f.session.Reset()
	f.store.Clear()

	f.store.HighlightTicket(5, HighlightJump, RealtimeJumpHighlightDuration)
	f.store.OpenTicket(5)

	assert.False(t, f.store.IsJumpHighlighted(5))
	assert.Zero(t, f.store.PendingHighlights())
	assert.False(t, f.store.IsOpen(5))
}

func TestClearTearsDownEverything(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	f.store.HighlightTicket(1, HighlightNew, time.Minute)
	f.store.OpenTicket(1)
	f.store.SetReplyDraft(1, "x")
	f.store.SetForm(Form{Name: "n", Subject: "s", GroupID: int64Ptr(10)})
	f.store.SetFilters(Filters{Keyword: "vpn", OnlyMine: true})

	f.store.Clear()

	assert.Empty(t, f.store.Tickets())
	assert.Empty(t, f.store.StatusDrafts())
	assert.False(t, f.store.IsOpen(1))
	assert.Empty(t, f.store.ReplyDraft(1))
	assert.False(t, f.store.IsNewHighlighted(1))
	assert.Zero(t, f.store.PendingHighlights())
	assert.Equal(t, Form{Priority: domain.TicketPriorityGeneral}, f.store.Form())
	assert.Equal(t, DefaultFilters(), f.store.Filters())
	assert.False(t, f.store.Lightbox().Open)

	f.clock.Advance(time.Hour)
	assert.False(t, f.store.IsNewHighlighted(1))
}

func TestApplyMemberProfileAndDefaults(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	f.store.SetForm(Form{GroupID: int64Ptr(20), CategoryID: int64Ptr(5)})
	f.store.ApplyMemberProfile(domain.Member{Name: "Alice", Email: "alice@example.com"})

	form := f.store.Form()
	assert.Equal(t, "Alice", form.Name)
	assert.Equal(t, "alice@example.com", form.Email)
	assert.Nil(t, form.GroupID)
	assert.Nil(t, form.CategoryID)

	f.store.ApplyDefaults()
	form = f.store.Form()
	assert.Equal(t, int64Ptr(10), form.GroupID)
	assert.Equal(t, int64Ptr(5), form.CategoryID)

	f.store.SetForm(Form{GroupID: int64Ptr(20), CategoryID: int64Ptr(99)})
	f.store.ApplyDefaults()
	form = f.store.Form()
	assert.Equal(t, int64Ptr(20), form.GroupID, "valid selection is kept")
	assert.Equal(t, int64Ptr(5), form.CategoryID)

	f.refs.groups = nil
	f.store.ApplyDefaults()
	assert.Nil(t, f.store.Form().GroupID)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func subscribeAll(d events.Dispatcher) *recorder {
	r := &recorder{}
	for _, et := range events.AllEventTypes {
		d.Subscribe(et, r.handle)
	}
	return r
}

func decodeBody(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHaystackIsLowercase(t *testing.T) {
	tk := ticket(3, domain.TicketStatusPending)
	tk.GroupName = strPtr("OPS Team")
	assert.True(t, strings.Contains(haystack(tk), "ops team"))
	assert.True(t, strings.Contains(haystack(tk), "pending"))
}
