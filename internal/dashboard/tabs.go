// Package dashboard sequences the per-feature stores across sign-in and
// sign-out and tracks the active dashboard tab.
package dashboard

import (
	"sync"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// Tabs holds the active dashboard view.
type Tabs struct {
	mu  sync.RWMutex
	tab domain.DashboardTab
}

// NewTabs starts on the helpdesk tab.
func NewTabs() *Tabs {
	return &Tabs{tab: domain.TabHelpdesk}
}

// SetTab switches view. Unknown tabs are ignored.
func (t *Tabs) SetTab(tab domain.DashboardTab) {
	if !tab.Valid() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tab = tab
}

// Tab returns the active view.
func (t *Tabs) Tab() domain.DashboardTab {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tab
}
