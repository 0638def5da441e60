package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.TicketStatus{
		"open":        domain.TicketStatusOpen,
		" Proceeding": domain.TicketStatusProceeding,
		"PENDING":     domain.TicketStatusPending,
		"closed ":     domain.TicketStatusClosed,
		"deleted":     domain.TicketStatusDeleted,
		"":            domain.TicketStatusOpen,
		"ARCHIVED":    domain.TicketStatusOpen,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), in)
	}
}

func TestParseEditableStatus(t *testing.T) {
	status, ok := ParseEditableStatus(" pending ")
	assert.True(t, ok)
	assert.Equal(t, domain.TicketStatusPending, status)

	for _, in := range []string{"CLSOED", "DELETED", ""} {
		_, ok := ParseEditableStatus(in)
		assert.False(t, ok, in)
	}
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, domain.TicketPriorityUrgent, NormalizePriority("urgent"))
	assert.Equal(t, domain.TicketPriorityUrgent, NormalizePriority(" URGENT "))
	assert.Equal(t, domain.TicketPriorityGeneral, NormalizePriority("HIGH"))
	assert.Equal(t, domain.TicketPriorityGeneral, NormalizePriority(""))
}

func TestEffectiveStatusPrefersSoftDelete(t *testing.T) {
	for _, status := range []domain.TicketStatus{"OPEN", "CLOSED", "bogus", ""} {
		flagged := domain.Ticket{Status: status, Deleted: true}
		assert.Equal(t, domain.TicketStatusDeleted, EffectiveStatus(flagged))

		at := domain.NewTimestamp(epoch)
		stamped := domain.Ticket{Status: status, DeletedAt: &at}
		assert.Equal(t, domain.TicketStatusDeleted, EffectiveStatus(stamped))
		assert.True(t, IsArchived(stamped))
	}
	assert.Equal(t, domain.TicketStatusPending, EffectiveStatus(domain.Ticket{Status: "pending"}))
}

func TestNormalizeTicketIdempotentAndApprovalInvariant(t *testing.T) {
	samples := []domain.Ticket{
		{ID: 1, Status: "weird", Priority: "general", SupervisorApproved: false},
		{ID: 2, Status: "closed", Priority: "URGENT", SupervisorApproved: false, GroupID: int64Ptr(3)},
		{ID: 3, Status: "PENDING", Priority: "urgent", SupervisorApproved: true},
		{ID: 4, Priority: "", Deleted: true, StatusHistories: []domain.TicketStatusHistory{{ID: 1, ToStatus: "OPEN"}}},
	}
	for _, raw := range samples {
		once := NormalizeTicket(raw)
		twice := NormalizeTicket(once)
		assert.Equal(t, once, twice)
		if once.Priority == domain.TicketPriorityGeneral {
			assert.True(t, once.SupervisorApproved)
		}
	}
	assert.False(t, NormalizeTicket(samples[1]).SupervisorApproved)
}

func TestNormalizeTicketDoesNotAlias(t *testing.T) {
	raw := domain.Ticket{ID: 1, GroupID: int64Ptr(3)}
	out := NormalizeTicket(raw)
	*out.GroupID = 9
	assert.Equal(t, int64(3), *raw.GroupID)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, domain.TicketStatusProceeding, NextStatus(domain.TicketStatusOpen))
	assert.Equal(t, domain.TicketStatusPending, NextStatus(domain.TicketStatusProceeding))
	assert.Equal(t, domain.TicketStatusClosed, NextStatus(domain.TicketStatusPending))
	assert.Equal(t, domain.TicketStatusOpen, NextStatus(domain.TicketStatusClosed))
	assert.Equal(t, domain.TicketStatusOpen, NextStatus(domain.TicketStatusDeleted))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1.50 MB", FormatSize(1572864))
	assert.Equal(t, "0.00 MB", FormatSize(0))

	open := "OPEN"
	assert.Equal(t, "初始化為 OPEN", FormatStatusTransition(domain.TicketStatusHistory{ToStatus: "open"}))
	assert.Equal(t, "主管已確認（OPEN）", FormatStatusTransition(domain.TicketStatusHistory{FromStatus: &open, ToStatus: "OPEN"}))
	assert.Equal(t, "OPEN → CLOSED", FormatStatusTransition(domain.TicketStatusHistory{FromStatus: &open, ToStatus: "CLOSED"}))
}
