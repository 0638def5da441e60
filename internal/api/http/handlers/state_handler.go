package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/dashboard"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// SessionView is the helpdesk session surface the state endpoints read.
type SessionView interface {
	CurrentMember() *domain.Member
}

// EventHistory exposes recently published client events.
type EventHistory interface {
	Recent() []events.Event
}

// StateHandler exposes read models of the client state.
type StateHandler struct {
	session   SessionView
	lifecycle *dashboard.Lifecycle
	tickets   *tickets.Store
	notifs    *notifications.Service
	history   EventHistory
	metrics   *observability.Metrics
}

// NewStateHandler constructs handler. history and metrics may be nil.
func NewStateHandler(session SessionView, lifecycle *dashboard.Lifecycle, ticketStore *tickets.Store, notifs *notifications.Service, history EventHistory, metrics *observability.Metrics) *StateHandler {
	return &StateHandler{
		session:   session,
		lifecycle: lifecycle,
		tickets:   ticketStore,
		notifs:    notifs,
		history:   history,
		metrics:   metrics,
	}
}

// Session GET /state/session.
func (h *StateHandler) Session(c *fiber.Ctx) error {
	member := h.session.CurrentMember()
	return c.JSON(fiber.Map{"data": dto.SessionResponse{
		Authenticated: member != nil,
		Member:        member,
		Tab:           h.lifecycle.Tabs().Tab(),
		Polling:       h.lifecycle.Polling(),
	}})
}

// Tickets GET /state/tickets?view=active|archive|all.
func (h *StateHandler) Tickets(c *fiber.Ctx) error {
	view := c.Query("view", "active")
	var list []domain.Ticket
	switch view {
	case "active":
		list = h.tickets.ActiveTickets()
	case "archive":
		list = h.tickets.ArchivedTickets()
	case "all":
		list = h.tickets.AllTickets()
	default:
		return apperrors.NewValidationError("view must be active, archive or all", map[string]any{"view": view})
	}

	message, kind := h.tickets.TicketFeedback()
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		View:         view,
		Items:        ticketViews(h.tickets, list),
		Loading:      h.tickets.Loading(),
		Feedback:     message,
		FeedbackType: kind,
	}})
}

// Stats GET /state/stats.
func (h *StateHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.tickets.Stats(h.tickets.Now())})
}

// PutFilters PUT /state/filters.
func (h *StateHandler) PutFilters(c *fiber.Ctx) error {
	filters := tickets.DefaultFilters()
	if err := c.BodyParser(&filters); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	h.tickets.SetFilters(filters)
	return c.JSON(fiber.Map{"data": h.tickets.Filters()})
}

// GetFilters GET /state/filters.
func (h *StateHandler) GetFilters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.tickets.Filters()})
}

// Notifications GET /state/notifications.
func (h *StateHandler) Notifications(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NotificationsResponse{
		Items:       h.notifs.Notifications(),
		UnreadCount: h.notifs.UnreadCount(),
		Loading:     h.notifs.Loading(),
		Feedback:    h.notifs.Feedback(),
	}})
}

// Events GET /state/events.
func (h *StateHandler) Events(c *fiber.Ctx) error {
	if h.history == nil {
		return c.JSON(fiber.Map{"data": []events.Event{}})
	}
	return c.JSON(fiber.Map{"data": h.history.Recent()})
}

// Metrics GET /state/metrics.
func (h *StateHandler) Metrics(c *fiber.Ctx) error {
	if h.metrics == nil {
		return c.JSON(fiber.Map{"data": observability.MetricsSnapshot{}})
	}
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
