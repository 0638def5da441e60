package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func ticketView(store *tickets.Store, t domain.Ticket) dto.TicketView {
	draft, _ := store.StatusDraft(t.ID)
	return dto.TicketView{
		Ticket:          t,
		EffectiveStatus: tickets.EffectiveStatus(t),
		Open:            store.IsOpen(t.ID),
		StatusDraft:     draft,
		ReplyDraft:      store.ReplyDraft(t.ID),
		ActionLoading:   store.ActionLoading(t.ID),
		NewHighlight:    store.IsNewHighlighted(t.ID),
		JumpHighlight:   store.IsJumpHighlighted(t.ID),
		CanDelete:       store.CanDeleteTicket(t),
		CanApprove:      store.CanSupervisorApprove(t),
	}
}

func ticketViews(store *tickets.Store, list []domain.Ticket) []dto.TicketView {
	items := make([]dto.TicketView, 0, len(list))
	for _, t := range list {
		items = append(items, ticketView(store, t))
	}
	return items
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}
