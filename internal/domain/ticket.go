package domain

import (
	"bytes"
	"encoding/json"
)

// TicketStatus enumerates lifecycle states for tickets. DELETED is a pseudo
// status derived from the soft-delete flags.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusProceeding TicketStatus = "PROCEEDING"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusDeleted    TicketStatus = "DELETED"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityGeneral TicketPriority = "GENERAL"
	TicketPriorityUrgent  TicketPriority = "URGENT"
)

// Ticket is the aggregate for support requests as returned by the backend.
type Ticket struct {
	ID                           int64                 `json:"id"`
	Name                         string                `json:"name"`
	Email                        string                `json:"email"`
	Subject                      string                `json:"subject"`
	Description                  string                `json:"description"`
	Status                       TicketStatus          `json:"status"`
	Priority                     TicketPriority        `json:"priority"`
	SupervisorApproved           bool                  `json:"supervisorApproved"`
	SupervisorApprovedByMemberID *int64                `json:"supervisorApprovedByMemberId"`
	SupervisorApprovedAt         *Timestamp            `json:"supervisorApprovedAt"`
	GroupID                      *int64                `json:"groupId"`
	GroupName                    *string               `json:"groupName"`
	CategoryID                   *int64                `json:"categoryId"`
	CategoryName                 *string               `json:"categoryName"`
	CreatedByMemberID            *int64                `json:"createdByMemberId"`
	CreatedByEmployeeID          *string               `json:"createdByEmployeeId"`
	Deleted                      bool                  `json:"deleted"`
	DeletedAt                    *Timestamp            `json:"deletedAt"`
	CreatedAt                    Timestamp             `json:"createdAt"`
	Attachments                  []Attachment          `json:"attachments"`
	Messages                     []TicketMessage       `json:"messages"`
	StatusHistories              []TicketStatusHistory `json:"statusHistories"`
}

// UnmarshalJSON decodes a ticket leniently: enum fields keep their raw text
// whatever its JSON type, and malformed child lists decode as empty.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	type plain Ticket
	*t = Ticket{}
	aux := struct {
		*plain
		Status          json.RawMessage `json:"status"`
		Priority        json.RawMessage `json:"priority"`
		Attachments     json.RawMessage `json:"attachments"`
		Messages        json.RawMessage `json:"messages"`
		StatusHistories json.RawMessage `json:"statusHistories"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Status = TicketStatus(rawText(aux.Status))
	t.Priority = TicketPriority(rawText(aux.Priority))
	t.Attachments = decodeList[Attachment](aux.Attachments)
	t.Messages = decodeList[TicketMessage](aux.Messages)
	t.StatusHistories = decodeList[TicketStatusHistory](aux.StatusHistories)
	if t.DeletedAt != nil && t.DeletedAt.IsZero() {
		t.DeletedAt = nil
	}
	if t.SupervisorApprovedAt != nil && t.SupervisorApprovedAt.IsZero() {
		t.SupervisorApprovedAt = nil
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Ticket) Clone() Ticket {
	out := t
	out.SupervisorApprovedByMemberID = cloneInt(t.SupervisorApprovedByMemberID)
	out.SupervisorApprovedAt = cloneTimestamp(t.SupervisorApprovedAt)
	out.GroupID = cloneInt(t.GroupID)
	out.GroupName = cloneString(t.GroupName)
	out.CategoryID = cloneInt(t.CategoryID)
	out.CategoryName = cloneString(t.CategoryName)
	out.CreatedByMemberID = cloneInt(t.CreatedByMemberID)
	out.CreatedByEmployeeID = cloneString(t.CreatedByEmployeeID)
	out.DeletedAt = cloneTimestamp(t.DeletedAt)
	out.Attachments = append([]Attachment{}, t.Attachments...)
	out.Messages = append([]TicketMessage{}, t.Messages...)
	out.StatusHistories = make([]TicketStatusHistory, len(t.StatusHistories))
	for i, h := range t.StatusHistories {
		h.FromStatus = cloneString(h.FromStatus)
		h.ChangedByMemberID = cloneInt(h.ChangedByMemberID)
		out.StatusHistories[i] = h
	}
	return out
}

func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func decodeList[T any](raw json.RawMessage) []T {
	out := []T{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return out
	}
	if err := json.Unmarshal(trimmed, &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTimestamp(v *Timestamp) *Timestamp {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
