package domain

// AuditLogItem is an immutable record of an administrative action.
type AuditLogItem struct {
	ID              int64     `json:"id"`
	ActorMemberID   *int64    `json:"actorMemberId"`
	ActorEmployeeID string    `json:"actorEmployeeId"`
	ActorName       string    `json:"actorName"`
	ActorRole       string    `json:"actorRole"`
	Action          string    `json:"action"`
	EntityType      string    `json:"entityType"`
	EntityID        *int64    `json:"entityId"`
	BeforeJSON      *string   `json:"beforeJson"`
	AfterJSON       *string   `json:"afterJson"`
	MetadataJSON    *string   `json:"metadataJson"`
	CreatedAt       Timestamp `json:"createdAt"`
}

// AuditCleanupResult summarizes a retention purge.
type AuditCleanupResult struct {
	ConfiguredRetentionDays int       `json:"configuredRetentionDays"`
	RequestedDays           *int      `json:"requestedDays"`
	Cutoff                  Timestamp `json:"cutoff"`
	CandidateCount          int64     `json:"candidateCount"`
	DeletedCount            int64     `json:"deletedCount"`
}
