package dto

import "github.com/spec-kit/helpdesk-client/internal/domain"

// StatusRequest payload. An empty status keeps the current draft.
type StatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ReplyRequest payload. An empty content sends the current draft.
type ReplyRequest struct {
	Content string `json:"content"`
}

// DeleteRequest payload. Confirm must be true for the delete to proceed.
type DeleteRequest struct {
	Confirm bool `json:"confirm"`
}

// ToggleResponse reports the expand state after a toggle.
type ToggleResponse struct {
	ID   int64 `json:"id"`
	Open bool  `json:"open"`
}
