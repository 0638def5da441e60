package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/tickets"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// AttachmentsHandler streams attachment bytes fetched with the session token.
type AttachmentsHandler struct {
	tickets *tickets.Store
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(ticketStore *tickets.Store) *AttachmentsHandler {
	return &AttachmentsHandler{tickets: ticketStore}
}

// Get GET /attachments/:ticketId/:attachmentId?download=1.
func (h *AttachmentsHandler) Get(c *fiber.Ctx) error {
	ticketID, err := paramID(c, "ticketId")
	if err != nil {
		return err
	}
	attachmentID, err := paramID(c, "attachmentId")
	if err != nil {
		return err
	}
	action := tickets.AttachmentView
	disposition := "inline"
	if c.QueryBool("download") {
		action = tickets.AttachmentDownload
		disposition = "attachment"
	}

	blob, err := h.tickets.FetchAttachment(c.UserContext(), ticketID, attachmentID, action)
	if err != nil {
		return err
	}
	contentType := blob.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("%s; filename*=UTF-8''%s", disposition, url.PathEscape(blob.Filename)))
	return c.Send(blob.Data)
}

// OpenImage POST /actions/tickets/:id/attachments/:attachmentId/open loads
// an image attachment into the lightbox.
func (h *AttachmentsHandler) OpenImage(c *fiber.Ctx) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	attachmentID, err := paramID(c, "attachmentId")
	if err != nil {
		return err
	}
	att, ok := h.tickets.Attachment(ticketID, attachmentID)
	if !ok {
		return apperrors.NewNotFound("attachment", map[string]any{"ticket_id": ticketID, "id": attachmentID})
	}
	if !tickets.IsImageAttachment(att) {
		return apperrors.NewValidationError("attachment is not an image", map[string]any{"content_type": att.ContentType})
	}
	if err := h.tickets.OpenImage(c.UserContext(), ticketID, att); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.tickets.Lightbox()})
}

// Lightbox GET /state/lightbox.
func (h *AttachmentsHandler) Lightbox(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.tickets.Lightbox()})
}

// CloseLightbox POST /actions/lightbox/close.
func (h *AttachmentsHandler) CloseLightbox(c *fiber.Ctx) error {
	h.tickets.CloseLightbox()
	return c.JSON(fiber.Map{"data": h.tickets.Lightbox()})
}
