package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	auditLogsPath = "/api/admin/audit-logs"

	// DefaultAuditLimit is the page size when none is set.
	DefaultAuditLimit = 100
	// DefaultAuditExportLimit caps a CSV export when no limit is set.
	DefaultAuditExportLimit = 500
	// MaxAuditLimit is the largest limit the backend accepts.
	MaxAuditLimit = 500
	// DefaultCleanupDays is the purge cutoff when none is set.
	DefaultCleanupDays = 180
	// MaxCleanupDays bounds the purge cutoff.
	MaxCleanupDays = 3650

	defaultExportFilename = "audit-logs.csv"
)

// AuditFilters narrow the audit log query. Blank fields are omitted.
type AuditFilters struct {
	Action        string `json:"action"`
	EntityType    string `json:"entityType"`
	EntityID      string `json:"entityId"`
	ActorMemberID string `json:"actorMemberId"`
	From          string `json:"from"`
	To            string `json:"to"`
	Limit         int    `json:"limit"`
}

// Query renders the filters as URL parameters. A non-positive limit falls
// back to defaultLimit; any limit is clamped to 1..500.
func (f AuditFilters) Query(defaultLimit int) url.Values {
	params := url.Values{}
	set := func(key, value string) {
		if value != "" {
			params.Set(key, value)
		}
	}
	set("action", strings.ToUpper(trimmedText(f.Action, 80)))
	set("entityType", strings.ToUpper(trimmedText(f.EntityType, 80)))
	set("entityId", trimmedText(f.EntityID, 40))
	set("actorMemberId", trimmedText(f.ActorMemberID, 40))
	set("from", trimmedText(f.From, 40))
	set("to", trimmedText(f.To, 40))

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(clamp(limit, 1, MaxAuditLimit)))
	return params
}

func trimmedText(value string, limit int) string {
	text := []rune(strings.TrimSpace(value))
	if len(text) <= limit {
		return string(text)
	}
	return string(text[:limit]) + "..."
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// AuditLogs browses, exports and purges the audit log.
type AuditLogs struct {
	client  *apiclient.Client
	session Session
	logger  *zap.Logger

	mu          sync.Mutex
	items       []domain.AuditLogItem
	filters     AuditFilters
	cleanupDays int
	loading     bool
	exporting   bool
	purging     bool

	feedback        feedback.Text
	cleanupFeedback feedback.Text
}

// NewAuditLogs constructs an empty browser.
func NewAuditLogs(client *apiclient.Client, session Session, logger *zap.Logger) *AuditLogs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogs{
		client:      client,
		session:     session,
		logger:      logger,
		items:       []domain.AuditLogItem{},
		filters:     AuditFilters{Limit: DefaultAuditLimit},
		cleanupDays: DefaultCleanupDays,
	}
}

// Load queries the audit log with the current filters.
func (a *AuditLogs) Load(ctx context.Context) error {
	if !a.session.IsAdmin() {
		return nil
	}
	gen := a.session.Generation()
	a.setFlag(&a.loading, true)
	defer a.setFlag(&a.loading, false)
	a.feedback.Clear()

	path := auditLogsPath + "?" + a.Filters().Query(DefaultAuditLimit).Encode()
	var items []domain.AuditLogItem
	if err := a.client.RequestJSON(ctx, http.MethodGet, path, nil, "讀取操作紀錄失敗", &items); err != nil {
		a.feedback.Set(errorutil.Message(err, "讀取操作紀錄失敗"))
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.session.Generation() {
		return nil
	}
	if items == nil {
		items = []domain.AuditLogItem{}
	}
	a.items = items
	return nil
}

// ExportCSV downloads the filtered log as CSV into dir and returns the
// written path.
func (a *AuditLogs) ExportCSV(ctx context.Context, dir string) (string, error) {
	if !a.session.IsAdmin() {
		return "", nil
	}
	a.setFlag(&a.exporting, true)
	defer a.setFlag(&a.exporting, false)
	a.feedback.Clear()

	path := auditLogsPath + "/export.csv?" + a.Filters().Query(DefaultAuditExportLimit).Encode()
	blob, err := a.client.FetchBlob(ctx, path, "匯出 CSV 失敗")
	if err != nil {
		a.feedback.Set(errorutil.Message(err, "匯出 CSV 失敗"))
		return "", err
	}

	name := filepath.Base(blob.Filename)
	if blob.Filename == "" || name == "." || name == ".." || name == "/" {
		name = defaultExportFilename
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, blob.Data, 0o644); err != nil {
		a.feedback.Set("匯出 CSV 失敗")
		return "", errorutil.NewInternalError(err)
	}
	a.logger.Info("audit log exported", zap.String("path", target), zap.Int("bytes", len(blob.Data)))
	return target, nil
}

// Purge deletes entries older than the configured number of days and
// reloads the list.
func (a *AuditLogs) Purge(ctx context.Context) (domain.AuditCleanupResult, error) {
	if !a.session.IsAdmin() {
		return domain.AuditCleanupResult{}, nil
	}
	a.setFlag(&a.purging, true)
	defer a.setFlag(&a.purging, false)
	a.cleanupFeedback.Clear()

	days := clamp(a.CleanupDays(), 1, MaxCleanupDays)
	path := fmt.Sprintf("%s/cleanup?days=%d", auditLogsPath, days)
	var result domain.AuditCleanupResult
	if err := a.client.RequestJSON(ctx, http.MethodPost, path, nil, "清理操作紀錄失敗", &result); err != nil {
		a.cleanupFeedback.Set(errorutil.Message(err, "清理操作紀錄失敗"))
		return domain.AuditCleanupResult{}, err
	}
	a.cleanupFeedback.Set(CleanupSummary(result, time.Local))
	if err := a.Load(ctx); err != nil {
		a.logger.Warn("reload audit logs after purge", zap.Error(err))
	}
	return result, nil
}

// CleanupSummary renders a purge result for display.
func CleanupSummary(result domain.AuditCleanupResult, loc *time.Location) string {
	return fmt.Sprintf("清理完成：候選 %d 筆，刪除 %d 筆（cutoff: %s）",
		result.CandidateCount,
		result.DeletedCount,
		result.Cutoff.In(loc).Format("2006/1/2 15:04:05"),
	)
}

// FormatJSONPreview pretty-prints a JSON column, or returns it unchanged
// when it is not valid JSON.
func FormatJSONPreview(raw *string) string {
	if raw == nil || *raw == "" {
		return "-"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(*raw), "", "  "); err != nil {
		return *raw
	}
	return out.String()
}

// SetFilters replaces the query filters.
func (a *AuditLogs) SetFilters(f AuditFilters) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters = f
}

// Filters returns the query filters.
func (a *AuditLogs) Filters() AuditFilters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filters
}

// SetCleanupDays sets the purge age in days.
func (a *AuditLogs) SetCleanupDays(days int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanupDays = days
}

// CleanupDays returns the purge age; non-positive values mean the default.
func (a *AuditLogs) CleanupDays() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cleanupDays <= 0 {
		return DefaultCleanupDays
	}
	return a.cleanupDays
}

// Items returns a copy of the loaded entries.
func (a *AuditLogs) Items() []domain.AuditLogItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditLogItem{}, a.items...)
}

// Busy reports whether a load, export or purge is in flight.
func (a *AuditLogs) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading || a.exporting || a.purging
}

// Feedback returns the last load or export failure.
func (a *AuditLogs) Feedback() string {
	return a.feedback.Message()
}

// CleanupFeedback returns the last purge summary or failure.
func (a *AuditLogs) CleanupFeedback() string {
	return a.cleanupFeedback.Message()
}

// Clear drops loaded entries and messages. Filters are kept.
func (a *AuditLogs) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = []domain.AuditLogItem{}
	a.feedback.Clear()
	a.cleanupFeedback.Clear()
}

func (a *AuditLogs) setFlag(flag *bool, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	*flag = v
}
