package domain

// TicketStatusHistory is an immutable audit trail entry. FromStatus is nil on
// the first entry of a ticket.
type TicketStatusHistory struct {
	ID                  int64     `json:"id"`
	FromStatus          *string   `json:"fromStatus"`
	ToStatus            string    `json:"toStatus"`
	ChangedByMemberID   *int64    `json:"changedByMemberId"`
	ChangedByEmployeeID string    `json:"changedByEmployeeId"`
	ChangedByName       string    `json:"changedByName"`
	ChangedByRole       string    `json:"changedByRole"`
	CreatedAt           Timestamp `json:"createdAt"`
}
