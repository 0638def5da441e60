package dto

import (
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
)

// SessionResponse describes the helpdesk session held by the agent.
type SessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	Member        *domain.Member      `json:"member"`
	Tab           domain.DashboardTab `json:"tab"`
	Polling       bool                `json:"polling"`
}

// TicketView is a ticket plus its per-session UI state.
type TicketView struct {
	Ticket          domain.Ticket       `json:"ticket"`
	EffectiveStatus domain.TicketStatus `json:"effective_status"`
	Open            bool                `json:"open"`
	StatusDraft     domain.TicketStatus `json:"status_draft"`
	ReplyDraft      string              `json:"reply_draft"`
	ActionLoading   bool                `json:"action_loading"`
	NewHighlight    bool                `json:"new_highlight"`
	JumpHighlight   bool                `json:"jump_highlight"`
	CanDelete       bool                `json:"can_delete"`
	CanApprove      bool                `json:"can_approve"`
}

// TicketListResponse is one filtered ticket view.
type TicketListResponse struct {
	View         string        `json:"view"`
	Items        []TicketView  `json:"items"`
	Loading      bool          `json:"loading"`
	Feedback     string        `json:"feedback"`
	FeedbackType feedback.Type `json:"feedback_type"`
}

// NotificationsResponse is the notification panel state.
type NotificationsResponse struct {
	Items       []domain.NotificationItem `json:"items"`
	UnreadCount int                       `json:"unread_count"`
	Loading     bool                      `json:"loading"`
	Feedback    string                    `json:"feedback"`
}
