// Package basedata holds the read-only lookups that gate ticket submission:
// the caller's groups and the helpdesk categories.
package basedata

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// Session is the slice of session state basedata reads.
type Session interface {
	IsAuthenticated() bool
	Generation() uint64
}

// Store caches groups and categories for the signed-in member.
type Store struct {
	client  *apiclient.Client
	session Session
	logger  *zap.Logger

	mu         sync.RWMutex
	groups     []domain.MyGroup
	categories []domain.HelpdeskCategory
}

// NewStore constructs a Store.
func NewStore(client *apiclient.Client, session Session, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, session: session, logger: logger}
}

// LoadMyGroups refreshes the member's groups. Failures reset the list.
func (s *Store) LoadMyGroups(ctx context.Context) {
	if !s.session.IsAuthenticated() {
		return
	}
	gen := s.session.Generation()
	var groups []domain.MyGroup
	if err := s.client.RequestJSON(ctx, http.MethodGet, "/api/groups/mine", nil, "讀取群組失敗", &groups); err != nil {
		s.logger.Debug("load my groups", zap.Error(err))
		groups = nil
	}
	if groups == nil {
		groups = []domain.MyGroup{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Generation() != gen {
		return
	}
	s.groups = groups
}

// LoadCategories refreshes the helpdesk categories. Failures reset the list.
func (s *Store) LoadCategories(ctx context.Context) {
	if !s.session.IsAuthenticated() {
		return
	}
	gen := s.session.Generation()
	var categories []domain.HelpdeskCategory
	if err := s.client.RequestJSON(ctx, http.MethodGet, "/api/helpdesk/categories", nil, "讀取分類失敗", &categories); err != nil {
		s.logger.Debug("load categories", zap.Error(err))
		categories = nil
	}
	if categories == nil {
		categories = []domain.HelpdeskCategory{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Generation() != gen {
		return
	}
	s.categories = categories
}

// MyGroups returns a copy of the member's groups.
func (s *Store) MyGroups() []domain.MyGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MyGroup{}, s.groups...)
}

// Categories returns a copy of the categories.
func (s *Store) Categories() []domain.HelpdeskCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HelpdeskCategory{}, s.categories...)
}

// IsSupervisorOf reports whether the member supervises groupID.
func (s *Store) IsSupervisorOf(groupID *int64) bool {
	if groupID == nil || *groupID == 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.ID == *groupID && g.Supervisor {
			return true
		}
	}
	return false
}

// Clear empties both lists.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = nil
	s.categories = nil
}
