// Package notifications keeps the member's notification list in sync and
// turns a notification into ticket navigation.
package notifications

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	notificationsPath = "/api/notifications"

	msgLoadFailed    = "讀取通知失敗"
	msgReadAllFailed = "全部已讀失敗"

	// DefaultPollInterval is the background refresh period.
	DefaultPollInterval = 15 * time.Second
	// JumpDelay lets the ticket list settle before the jump highlight.
	JumpDelay = 80 * time.Millisecond
)

// Session is the slice of session state the service reads.
type Session interface {
	IsAuthenticated() bool
	IsItOrAdmin() bool
	Generation() uint64
}

// Tickets is the ticket store surface used for navigation.
type Tickets interface {
	LoadTickets(ctx context.Context) error
	Ticket(id int64) (domain.Ticket, bool)
	OpenTicket(id int64)
	HighlightTicket(id int64, kind tickets.HighlightKind, d time.Duration)
}

// TabSetter switches the dashboard view.
type TabSetter interface {
	SetTab(tab domain.DashboardTab)
}

// Options configures a Service.
type Options struct {
	Client       *apiclient.Client
	Session      Session
	Tickets      Tickets
	Tabs         TabSetter
	Clock        clock.Clock
	Logger       *zap.Logger
	Events       events.Dispatcher
	PollInterval time.Duration
}

// Service owns the notification list.
type Service struct {
	client   *apiclient.Client
	session  Session
	tickets  Tickets
	tabs     TabSetter
	clock    clock.Clock
	logger   *zap.Logger
	events   events.Dispatcher
	interval time.Duration

	mu        sync.Mutex
	items     []domain.NotificationItem
	unread    int
	panelOpen bool
	loading   bool
	jumpTimer *clock.Timer

	feedback feedback.Text
}

// NewService constructs a Service.
func NewService(opts Options) *Service {
	s := &Service{
		client:   opts.Client,
		session:  opts.Session,
		tickets:  opts.Tickets,
		tabs:     opts.Tabs,
		clock:    opts.Clock,
		logger:   opts.Logger,
		events:   opts.Events,
		interval: opts.PollInterval,
		items:    []domain.NotificationItem{},
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
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	return s
}

// Load fetches notifications. Silent loads leave the loading flag and the
// feedback text alone on failure.
func (s *Service) Load(ctx context.Context, silent bool) error {
	if !s.session.IsAuthenticated() {
		return nil
	}
	gen := s.session.Generation()
	if !silent {
		s.setLoading(true)
		defer s.setLoading(false)
	}
	s.feedback.Clear()

	var data domain.NotificationList
	err := s.client.RequestJSON(ctx, http.MethodGet, notificationsPath, nil, msgLoadFailed, &data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.session.Generation() {
		return nil
	}
	if err != nil {
		if !silent {
			s.feedback.Set(errorutil.Message(err, msgLoadFailed))
		}
		s.logger.Debug("load notifications", zap.Bool("silent", silent), zap.Error(err))
		return err
	}
	if data.Notifications == nil {
		data.Notifications = []domain.NotificationItem{}
	}
	s.items = data.Notifications
	s.unread = data.UnreadCount
	return nil
}

// MarkRead flips one notification to read locally and tells the server.
// Server failures are ignored; the next load reconciles.
func (s *Service) MarkRead(ctx context.Context, id int64) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].Read {
			s.items[i].Read = true
			s.unread = max(0, s.unread-1)
		}
	}
	s.mu.Unlock()

	path := fmt.Sprintf("%s/%d/read", notificationsPath, id)
	if err := s.client.RequestJSON(ctx, http.MethodPatch, path, nil, msgLoadFailed, nil); err != nil {
		s.logger.Debug("mark notification read", zap.Int64("notification_id", id), zap.Error(err))
	}
}

// MarkAllRead marks everything read once the server confirms.
func (s *Service) MarkAllRead(ctx context.Context) error {
	gen := s.session.Generation()
	s.feedback.Clear()
	err := s.client.RequestJSON(ctx, http.MethodPatch, notificationsPath+"/read-all", nil, msgReadAllFailed, nil)
	if err != nil {
		s.feedback.Set(errorutil.Message(err, msgReadAllFailed))
		return err
	}

	s.mu.Lock()
	if gen != s.session.Generation() {
		s.mu.Unlock()
		return nil
	}
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()

	evt := events.New(events.EventNotificationsRead, 0, s.clock.Now(), nil)
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish notifications read", zap.Error(err))
	}
	return nil
}

// Open marks the item read and, when it points at a ticket, reloads
// tickets, routes to the view that lists the ticket, expands it and
// schedules a jump highlight. The panel is closed afterwards.
func (s *Service) Open(ctx context.Context, item domain.NotificationItem) error {
	if !item.Read {
		s.MarkRead(ctx, item.ID)
	}
	defer s.SetPanelOpen(false)

	if item.TicketID == nil || *item.TicketID == 0 || s.tickets == nil {
		return nil
	}
	ticketID := *item.TicketID
	gen := s.session.Generation()
	err := s.tickets.LoadTickets(ctx)
	if gen != s.session.Generation() {
		return nil
	}

	archived := false
	if t, ok := s.tickets.Ticket(ticketID); ok {
		archived = tickets.IsArchived(t)
	}
	if s.tabs != nil {
		s.tabs.SetTab(s.targetTab(archived))
	}
	s.tickets.OpenTicket(ticketID)

	s.mu.Lock()
	if s.jumpTimer != nil {
		s.jumpTimer.Stop()
	}
	s.jumpTimer = s.clock.AfterFunc(JumpDelay, func() {
		if gen != s.session.Generation() {
			return
		}
		s.tickets.HighlightTicket(ticketID, tickets.HighlightJump, tickets.NotificationJumpDuration)
	})
	s.mu.Unlock()
	return err
}

func (s *Service) targetTab(archived bool) domain.DashboardTab {
	switch {
	case archived:
		return domain.TabArchive
	case s.session.IsItOrAdmin():
		return domain.TabITDesk
	default:
		return domain.TabHelpdesk
	}
}

// Find returns a notification by id.
func (s *Service) Find(id int64) (domain.NotificationItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.NotificationItem{}, false
}

// Notifications returns a copy of the list.
func (s *Service) Notifications() []domain.NotificationItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.NotificationItem{}, s.items...)
}

// UnreadCount returns the unread badge count.
func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Loading reports a foreground load in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Feedback returns the last foreground failure.
func (s *Service) Feedback() string {
	return s.feedback.Message()
}

// SetPanelOpen shows or hides the notification panel.
func (s *Service) SetPanelOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panelOpen = open
}

// PanelOpen reports whether the panel is shown.
func (s *Service) PanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

// Clear empties the list and cancels a pending jump highlight.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.NotificationItem{}
	s.unread = 0
	s.panelOpen = false
	s.loading = false
	if s.jumpTimer != nil {
		s.jumpTimer.Stop()
		s.jumpTimer = nil
	}
	s.feedback.Clear()
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}
