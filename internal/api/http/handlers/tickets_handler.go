package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// TicketsHandler runs ticket actions against the store.
type TicketsHandler struct {
	tickets *tickets.Store
	notifs  *notifications.Service
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketStore *tickets.Store, notifs *notifications.Service) *TicketsHandler {
	return &TicketsHandler{tickets: ticketStore, notifs: notifs}
}

// UpdateStatus POST /actions/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.Status != "" {
		status, ok := tickets.ParseEditableStatus(string(req.Status))
		if !ok {
			return apperrors.NewValidationError("invalid status", map[string]any{
				"status":  req.Status,
				"allowed": tickets.EditableStatuses,
			})
		}
		h.tickets.SetStatusDraft(id, status)
	}
	if err := h.tickets.UpdateTicketStatus(c.UserContext(), id); err != nil {
		return err
	}
	return h.respondTicket(c, id)
}

// Advance POST /actions/tickets/:id/advance.
func (h *TicketsHandler) Advance(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.QuickAdvanceTicketStatus(c.UserContext(), id); err != nil {
		return err
	}
	return h.respondTicket(c, id)
}

// Reply POST /actions/tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if strings.TrimSpace(req.Content) != "" {
		h.tickets.SetReplyDraft(id, req.Content)
	}
	if err := h.tickets.SendReply(c.UserContext(), id); err != nil {
		return err
	}
	return h.respondTicket(c, id)
}

// Delete POST /actions/tickets/:id/delete.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.DeleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	confirm := tickets.ConfirmFunc(func(context.Context, string) bool { return req.Confirm })
	if err := h.tickets.SoftDeleteTicket(c.UserContext(), id, confirm); err != nil {
		return err
	}
	return h.respondTicket(c, id)
}

// Approve POST /actions/tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tickets.SupervisorApproveTicket(c.UserContext(), id); err != nil {
		return err
	}
	return h.respondTicket(c, id)
}

// Toggle POST /actions/tickets/:id/toggle.
func (h *TicketsHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, ok := h.tickets.Ticket(id); !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	h.tickets.ToggleTicket(id)
	return c.JSON(fiber.Map{"data": dto.ToggleResponse{ID: id, Open: h.tickets.IsOpen(id)}})
}

// Reload POST /actions/tickets/reload refreshes tickets and notifications.
func (h *TicketsHandler) Reload(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.tickets.LoadTickets(ctx); err != nil {
		return err
	}
	if err := h.notifs.Load(ctx, false); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"tickets":      len(h.tickets.Tickets()),
		"unread_count": h.notifs.UnreadCount(),
	}})
}

func (h *TicketsHandler) respondTicket(c *fiber.Ctx, id int64) error {
	t, ok := h.tickets.Ticket(id)
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": ticketView(h.tickets, t)})
}
