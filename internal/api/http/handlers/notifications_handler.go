package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/dashboard"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// NotificationsHandler runs notification actions.
type NotificationsHandler struct {
	notifs *notifications.Service
	tabs   *dashboard.Tabs
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifs *notifications.Service, tabs *dashboard.Tabs) *NotificationsHandler {
	return &NotificationsHandler{notifs: notifs, tabs: tabs}
}

// Open POST /actions/notifications/:id/open.
func (h *NotificationsHandler) Open(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	item, ok := h.notifs.Find(id)
	if !ok {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	if err := h.notifs.Open(c.UserContext(), item); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"tab":          h.tabs.Tab(),
		"ticket_id":    item.TicketID,
		"unread_count": h.notifs.UnreadCount(),
	}})
}

// ReadAll POST /actions/notifications/read-all.
func (h *NotificationsHandler) ReadAll(c *fiber.Ctx) error {
	if err := h.notifs.MarkAllRead(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread_count": h.notifs.UnreadCount()}})
}
