package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	adminGroupsPath     = "/api/admin/groups"
	adminCategoriesPath = "/api/admin/helpdesk-categories"
)

// AssignForm is the pending group membership selection.
type AssignForm struct {
	GroupID  *int64
	MemberID *int64
}

// Management administers routing groups and ticket categories.
type Management struct {
	client  *apiclient.Client
	session Session
	base    BaseData
	logger  *zap.Logger

	mu            sync.Mutex
	groups        []domain.AdminGroup
	categories    []domain.HelpdeskCategory
	loadingGroups bool
	assign        AssignForm

	groupsFeedback   feedback.Text
	categoryFeedback feedback.Text
}

// NewManagement constructs an empty Management store.
func NewManagement(client *apiclient.Client, session Session, base BaseData, logger *zap.Logger) *Management {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Management{
		client:     client,
		session:    session,
		base:       base,
		logger:     logger,
		groups:     []domain.AdminGroup{},
		categories: []domain.HelpdeskCategory{},
	}
}

// LoadGroups fetches every group and defaults the assignment selection to
// the first one.
func (m *Management) LoadGroups(ctx context.Context) error {
	if !m.session.IsAdmin() {
		return nil
	}
	gen := m.session.Generation()
	m.setLoadingGroups(true)
	defer m.setLoadingGroups(false)
	m.groupsFeedback.Clear()

	var groups []domain.AdminGroup
	if err := m.client.RequestJSON(ctx, http.MethodGet, adminGroupsPath, nil, "讀取群組失敗", &groups); err != nil {
		m.groupsFeedback.Set(errorutil.Message(err, "讀取群組失敗"))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.session.Generation() {
		return nil
	}
	if groups == nil {
		groups = []domain.AdminGroup{}
	}
	m.groups = groups
	if len(groups) > 0 && (m.assign.GroupID == nil || *m.assign.GroupID == 0) {
		id := groups[0].ID
		m.assign.GroupID = &id
	}
	return nil
}

// LoadCategories fetches every category.
func (m *Management) LoadCategories(ctx context.Context) error {
	if !m.session.IsAdmin() {
		return nil
	}
	gen := m.session.Generation()
	m.categoryFeedback.Clear()

	var categories []domain.HelpdeskCategory
	if err := m.client.RequestJSON(ctx, http.MethodGet, adminCategoriesPath, nil, "讀取分類失敗", &categories); err != nil {
		m.categoryFeedback.Set(errorutil.Message(err, "讀取分類失敗"))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.session.Generation() {
		return nil
	}
	if categories == nil {
		categories = []domain.HelpdeskCategory{}
	}
	m.categories = categories
	return nil
}

// CreateCategory adds a category.
func (m *Management) CreateCategory(ctx context.Context, name string) error {
	return m.categoryMutation(ctx, http.MethodPost, adminCategoriesPath, name, true, "建立分類失敗")
}

// UpdateCategory renames a category.
func (m *Management) UpdateCategory(ctx context.Context, id int64, name string) error {
	return m.categoryMutation(ctx, http.MethodPatch, fmt.Sprintf("%s/%d", adminCategoriesPath, id), name, true, "修改分類失敗")
}

// DeleteCategory removes a category.
func (m *Management) DeleteCategory(ctx context.Context, id int64) error {
	return m.categoryMutation(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", adminCategoriesPath, id), "", false, "刪除分類失敗")
}

func (m *Management) categoryMutation(ctx context.Context, method, path, name string, needsName bool, fallback string) error {
	if !m.session.IsAdmin() {
		return nil
	}
	var body any
	if needsName {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			m.categoryFeedback.Set("請輸入分類名稱。")
			return errorutil.NewValidationError("請輸入分類名稱。", nil)
		}
		body = map[string]string{"name": trimmed}
	}
	m.categoryFeedback.Clear()

	if err := m.client.RequestJSON(ctx, method, path, body, fallback, nil); err != nil {
		m.categoryFeedback.Set(errorutil.Message(err, fallback))
		return err
	}
	if err := m.LoadCategories(ctx); err != nil {
		return err
	}
	if m.base != nil {
		m.base.LoadCategories(ctx)
	}
	return nil
}

// CreateGroup adds a group.
func (m *Management) CreateGroup(ctx context.Context, name string) error {
	if !m.session.IsAdmin() {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		m.groupsFeedback.Set("請輸入群組名稱。")
		return errorutil.NewValidationError("請輸入群組名稱。", nil)
	}
	return m.groupMutation(ctx, http.MethodPost, adminGroupsPath, map[string]string{"name": trimmed}, "建立群組失敗")
}

// AddMemberToGroup adds a member to a group. Zero ids are ignored.
func (m *Management) AddMemberToGroup(ctx context.Context, groupID, memberID int64) error {
	if groupID == 0 || memberID == 0 {
		return nil
	}
	path := fmt.Sprintf("%s/%d/members/%d", adminGroupsPath, groupID, memberID)
	return m.groupMutation(ctx, http.MethodPatch, path, nil, "加入群組失敗")
}

// RemoveMemberFromGroup drops a member from a group.
func (m *Management) RemoveMemberFromGroup(ctx context.Context, groupID, memberID int64) error {
	path := fmt.Sprintf("%s/%d/members/%d", adminGroupsPath, groupID, memberID)
	return m.groupMutation(ctx, http.MethodDelete, path, nil, "移出群組失敗")
}

// SetGroupSupervisor makes a member the group's supervisor.
func (m *Management) SetGroupSupervisor(ctx context.Context, groupID, memberID int64) error {
	path := fmt.Sprintf("%s/%d/supervisor/%d", adminGroupsPath, groupID, memberID)
	return m.groupMutation(ctx, http.MethodPatch, path, nil, "設定主管失敗")
}

func (m *Management) groupMutation(ctx context.Context, method, path string, body any, fallback string) error {
	if !m.session.IsAdmin() {
		return nil
	}
	m.groupsFeedback.Clear()
	if err := m.client.RequestJSON(ctx, method, path, body, fallback, nil); err != nil {
		m.groupsFeedback.Set(errorutil.Message(err, fallback))
		return err
	}
	if err := m.LoadGroups(ctx); err != nil {
		return err
	}
	if m.base != nil {
		m.base.LoadMyGroups(ctx)
	}
	return nil
}

// Groups returns a copy of the group list.
func (m *Management) Groups() []domain.AdminGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AdminGroup{}, m.groups...)
}

// Categories returns a copy of the category list.
func (m *Management) Categories() []domain.HelpdeskCategory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.HelpdeskCategory{}, m.categories...)
}

// LoadingGroups reports a group load in flight.
func (m *Management) LoadingGroups() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadingGroups
}

// AssignForm returns the pending membership selection.
func (m *Management) AssignForm() AssignForm {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assign
}

// SetAssignForm records the pending membership selection.
func (m *Management) SetAssignForm(form AssignForm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assign = form
}

// GroupsFeedback returns the last group failure.
func (m *Management) GroupsFeedback() string {
	return m.groupsFeedback.Message()
}

// CategoryFeedback returns the last category failure.
func (m *Management) CategoryFeedback() string {
	return m.categoryFeedback.Message()
}

// Clear resets everything to empty.
func (m *Management) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = []domain.AdminGroup{}
	m.categories = []domain.HelpdeskCategory{}
	m.loadingGroups = false
	m.assign = AssignForm{}
	m.groupsFeedback.Clear()
	m.categoryFeedback.Clear()
}

func (m *Management) setLoadingGroups(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingGroups = v
}
