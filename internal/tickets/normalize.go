package tickets

import (
	"strings"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// EditableStatuses are the statuses a status update may set.
var EditableStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusProceeding,
	domain.TicketStatusPending,
	domain.TicketStatusClosed,
}

// ParseEditableStatus returns the editable status named by value, matched
// case-insensitively. ok is false for anything outside EditableStatuses.
func ParseEditableStatus(value string) (status domain.TicketStatus, ok bool) {
	want := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !isEditable(want) {
		return "", false
	}
	return want, true
}

// NormalizeStatus maps any input onto a known status; unknown or blank
// values become OPEN.
func NormalizeStatus(value string) domain.TicketStatus {
	switch domain.TicketStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case domain.TicketStatusDeleted:
		return domain.TicketStatusDeleted
	case domain.TicketStatusProceeding:
		return domain.TicketStatusProceeding
	case domain.TicketStatusPending:
		return domain.TicketStatusPending
	case domain.TicketStatusClosed:
		return domain.TicketStatusClosed
	default:
		return domain.TicketStatusOpen
	}
}

// NormalizePriority returns URGENT only for a case-insensitive "URGENT".
func NormalizePriority(value string) domain.TicketPriority {
	if strings.EqualFold(strings.TrimSpace(value), string(domain.TicketPriorityUrgent)) {
		return domain.TicketPriorityUrgent
	}
	return domain.TicketPriorityGeneral
}

// NormalizeTicket returns the canonical form of a backend ticket. GENERAL
// tickets are always approved. The result shares no memory with t.
func NormalizeTicket(t domain.Ticket) domain.Ticket {
	out := t.Clone()
	out.Status = NormalizeStatus(string(t.Status))
	out.Priority = NormalizePriority(string(t.Priority))
	if out.Priority != domain.TicketPriorityUrgent {
		out.SupervisorApproved = true
	}
	return out
}

// EffectiveStatus is DELETED whenever the ticket is soft-deleted, otherwise
// its normalized status.
func EffectiveStatus(t domain.Ticket) domain.TicketStatus {
	if t.Deleted || t.DeletedAt != nil {
		return domain.TicketStatusDeleted
	}
	return NormalizeStatus(string(t.Status))
}

// IsDeleted reports whether the effective status is DELETED.
func IsDeleted(t domain.Ticket) bool {
	return EffectiveStatus(t) == domain.TicketStatusDeleted
}

// IsArchived reports whether the ticket belongs in the archive view.
func IsArchived(t domain.Ticket) bool {
	status := EffectiveStatus(t)
	return status == domain.TicketStatusClosed || status == domain.TicketStatusDeleted
}

// NextStatus cycles OPEN, PROCEEDING, PENDING, CLOSED and back to OPEN.
func NextStatus(status domain.TicketStatus) domain.TicketStatus {
	for i, s := range EditableStatuses {
		if s == status {
			return EditableStatuses[(i+1)%len(EditableStatuses)]
		}
	}
	return domain.TicketStatusOpen
}

func isEditable(status domain.TicketStatus) bool {
	for _, s := range EditableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
