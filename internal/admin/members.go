package admin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const membersPath = "/api/admin/members"

// Members is the admin member roster.
type Members struct {
	client  *apiclient.Client
	session Session
	logger  *zap.Logger

	mu      sync.Mutex
	members []domain.Member
	loading bool

	feedback feedback.Text
}

// NewMembers constructs an empty roster.
func NewMembers(client *apiclient.Client, session Session, logger *zap.Logger) *Members {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Members{client: client, session: session, logger: logger, members: []domain.Member{}}
}

// Load fetches every member.
func (m *Members) Load(ctx context.Context) error {
	if !m.session.IsAdmin() {
		return nil
	}
	gen := m.session.Generation()
	m.setLoading(true)
	defer m.setLoading(false)
	m.feedback.Clear()

	var list []domain.Member
	if err := m.client.RequestJSON(ctx, http.MethodGet, membersPath, nil, "讀取成員失敗", &list); err != nil {
		m.feedback.Set(errorutil.Message(err, "讀取成員失敗"))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.session.Generation() {
		return nil
	}
	if list == nil {
		list = []domain.Member{}
	}
	m.members = list
	return nil
}

// UpdateRole changes a member's role. ADMIN accounts are left alone.
func (m *Members) UpdateRole(ctx context.Context, member domain.Member, role domain.Role) error {
	if !m.session.IsAdmin() || member.Role == domain.RoleAdmin {
		return nil
	}
	gen := m.session.Generation()
	var updated domain.Member
	path := fmt.Sprintf("%s/%d/role", membersPath, member.ID)
	err := m.client.RequestJSON(ctx, http.MethodPatch, path, map[string]domain.Role{"role": role}, "更新角色失敗", &updated)
	if err != nil {
		m.feedback.Set(errorutil.Message(err, "更新角色失敗"))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.session.Generation() {
		return nil
	}
	for i := range m.members {
		if m.members[i].ID == updated.ID {
			m.members[i] = updated
		}
	}
	return nil
}

// Delete removes a non-ADMIN member after confirmation.
func (m *Members) Delete(ctx context.Context, member domain.Member, confirm Confirmer) error {
	if !m.session.IsAdmin() || member.Role == domain.RoleAdmin {
		return nil
	}
	prompt := fmt.Sprintf("確定刪除 %s (%s)？", member.Name, member.EmployeeID)
	if confirm == nil || !confirm.Confirm(ctx, prompt) {
		return nil
	}
	gen := m.session.Generation()
	path := fmt.Sprintf("%s/%d", membersPath, member.ID)
	if err := m.client.RequestJSON(ctx, http.MethodDelete, path, nil, "刪除失敗", nil); err != nil {
		m.feedback.Set(errorutil.Message(err, "刪除失敗"))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.session.Generation() {
		return nil
	}
	kept := m.members[:0]
	for _, existing := range m.members {
		if existing.ID != member.ID {
			kept = append(kept, existing)
		}
	}
	m.members = kept
	m.logger.Info("member deleted", zap.Int64("member_id", member.ID))
	return nil
}

// List returns a copy of the roster.
func (m *Members) List() []domain.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Member{}, m.members...)
}

// Find returns a roster entry by id.
func (m *Members) Find(id int64) (domain.Member, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.ID == id {
			return member, true
		}
	}
	return domain.Member{}, false
}

// Loading reports a load in flight.
func (m *Members) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Feedback returns the last failure message.
func (m *Members) Feedback() string {
	return m.feedback.Message()
}

// Clear empties the roster.
func (m *Members) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = []domain.Member{}
	m.loading = false
	m.feedback.Clear()
}

func (m *Members) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}
