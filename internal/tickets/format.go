package tickets

import (
	"fmt"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// FormatSize renders a byte count in megabytes.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// FormatStatusTransition describes a status history entry. An entry whose
// from and to statuses match records a supervisor approval.
func FormatStatusTransition(h domain.TicketStatusHistory) string {
	to := NormalizeStatus(h.ToStatus)
	if h.FromStatus == nil || *h.FromStatus == "" {
		return fmt.Sprintf("初始化為 %s", to)
	}
	from := NormalizeStatus(*h.FromStatus)
	if from == to {
		return fmt.Sprintf("主管已確認（%s）", to)
	}
	return fmt.Sprintf("%s → %s", from, to)
}
