package dto

import (
	"github.com/spec-kit/helpdesk-client/internal/admin"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// RoleRequest payload.
type RoleRequest struct {
	Role domain.Role `json:"role"`
}

// NameRequest names a new or renamed group or category.
type NameRequest struct {
	Name string `json:"name"`
}

// PurgeRequest payload. Zero days uses the configured retention.
type PurgeRequest struct {
	Days int `json:"days"`
}

// MembersResponse is the admin roster.
type MembersResponse struct {
	Items    []domain.Member `json:"items"`
	Loading  bool            `json:"loading"`
	Feedback string          `json:"feedback"`
}

// ManagementResponse lists groups and categories.
type ManagementResponse struct {
	Groups           []domain.AdminGroup       `json:"groups"`
	Categories       []domain.HelpdeskCategory `json:"categories"`
	LoadingGroups    bool                      `json:"loading_groups"`
	GroupsFeedback   string                    `json:"groups_feedback"`
	CategoryFeedback string                    `json:"category_feedback"`
}

// AuditLogsResponse is the audit log browser state.
type AuditLogsResponse struct {
	Items           []domain.AuditLogItem `json:"items"`
	Filters         admin.AuditFilters    `json:"filters"`
	CleanupDays     int                   `json:"cleanup_days"`
	Busy            bool                  `json:"busy"`
	Feedback        string                `json:"feedback"`
	CleanupFeedback string                `json:"cleanup_feedback"`
}

// PurgeResponse reports a finished purge.
type PurgeResponse struct {
	Result  domain.AuditCleanupResult `json:"result"`
	Summary string                    `json:"summary"`
}

// ExportResponse names the written CSV file.
type ExportResponse struct {
	Path string `json:"path"`
}
