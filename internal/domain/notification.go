package domain

// NotificationType tags the origin of a notification.
type NotificationType string

const (
	NotificationTicketCreated NotificationType = "TICKET_CREATED"
	NotificationTicketReply   NotificationType = "TICKET_REPLY"
	NotificationTicketStatus  NotificationType = "TICKET_STATUS"
)

// NotificationItem is a per-member notification.
type NotificationItem struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	TicketID  *int64           `json:"ticketId"`
	Read      bool             `json:"read"`
	CreatedAt Timestamp        `json:"createdAt"`
}

// NotificationList is the GET /api/notifications payload.
type NotificationList struct {
	Notifications []NotificationItem `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
}
