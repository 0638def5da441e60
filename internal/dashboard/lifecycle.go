package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	"github.com/spec-kit/helpdesk-client/internal/session"
)

// Session is the role view the lifecycle routes on.
type Session interface {
	IsAdmin() bool
	IsItOrAdmin() bool
}

// BaseData is the reference data loaded first after sign-in.
type BaseData interface {
	LoadMyGroups(ctx context.Context)
	LoadCategories(ctx context.Context)
	Clear()
}

// Tickets is the ticket store surface the lifecycle drives.
type Tickets interface {
	ApplyMemberProfile(member domain.Member)
	ApplyDefaults()
	LoadTickets(ctx context.Context) error
	Clear()
}

// Notifications is the notification service surface the lifecycle drives.
type Notifications interface {
	Load(ctx context.Context, silent bool) error
	StartPolling(ctx context.Context) *notifications.Poller
	Clear()
}

// Realtime is the push subscription.
type Realtime interface {
	Connect(ctx context.Context)
	Disconnect()
}

// Clearer empties a per-session store.
type Clearer interface {
	Clear()
}

// MembersStore is the admin member roster.
type MembersStore interface {
	Clearer
	Load(ctx context.Context) error
}

// ManagementStore is the admin group and category store.
type ManagementStore interface {
	Clearer
	LoadGroups(ctx context.Context) error
	LoadCategories(ctx context.Context) error
}

// AuditLogStore is the admin audit log browser.
type AuditLogStore interface {
	Clearer
	Load(ctx context.Context) error
}

// Options wires a Lifecycle. Realtime may be nil when push is disabled.
type Options struct {
	Session       Session
	Tabs          *Tabs
	BaseData      BaseData
	Tickets       Tickets
	Notifications Notifications
	Realtime      Realtime
	Members       MembersStore
	Management    ManagementStore
	AuditLogs     AuditLogStore
	Logger        *zap.Logger
}

// Lifecycle owns the notification poller and the realtime connection for
// the signed-in session.
type Lifecycle struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	poller *notifications.Poller
}

// NewLifecycle constructs a Lifecycle.
func NewLifecycle(opts Options) *Lifecycle {
	if opts.Tabs == nil {
		opts.Tabs = NewTabs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{opts: opts, logger: logger}
}

// Hooks returns the session transition hooks bound to this lifecycle.
func (l *Lifecycle) Hooks() session.Hooks {
	return session.Hooks{
		AfterLogin:   l.AfterLogin,
		ApplyProfile: l.opts.Tickets.ApplyMemberProfile,
		ClearState:   l.ClearSessionState,
	}
}

// Tabs returns the tab state.
func (l *Lifecycle) Tabs() *Tabs {
	return l.opts.Tabs
}

// AfterLogin loads reference data, tickets and notifications in order,
// starts background refresh and routes to the role's default tab. Load
// failures land in each store's feedback and do not stop the sequence.
func (l *Lifecycle) AfterLogin(ctx context.Context) error {
	l.opts.BaseData.LoadMyGroups(ctx)
	l.opts.BaseData.LoadCategories(ctx)
	l.opts.Tickets.ApplyDefaults()
	if err := l.opts.Tickets.LoadTickets(ctx); err != nil {
		l.logger.Warn("initial ticket load", zap.Error(err))
	}
	if err := l.opts.Notifications.Load(ctx, false); err != nil {
		l.logger.Warn("initial notification load", zap.Error(err))
	}

	// background work outlives the request that signed in
	l.startBackground(context.WithoutCancel(ctx))

	switch {
	case l.opts.Session.IsAdmin():
		l.OpenMembersTab(ctx)
	case l.opts.Session.IsItOrAdmin():
		l.opts.Tabs.SetTab(domain.TabITDesk)
	default:
		l.opts.Tabs.SetTab(domain.TabHelpdesk)
	}
	return nil
}

// OpenMembersTab switches to the members tab and loads every admin list.
func (l *Lifecycle) OpenMembersTab(ctx context.Context) {
	l.opts.Tabs.SetTab(domain.TabMembers)
	if l.opts.Members != nil {
		if err := l.opts.Members.Load(ctx); err != nil {
			l.logger.Debug("load members", zap.Error(err))
		}
	}
	if l.opts.Management != nil {
		if err := l.opts.Management.LoadGroups(ctx); err != nil {
			l.logger.Debug("load admin groups", zap.Error(err))
		}
		if err := l.opts.Management.LoadCategories(ctx); err != nil {
			l.logger.Debug("load admin categories", zap.Error(err))
		}
	}
	if l.opts.AuditLogs != nil {
		if err := l.opts.AuditLogs.Load(ctx); err != nil {
			l.logger.Debug("load audit logs", zap.Error(err))
		}
	}
}

// ClearSessionState stops background refresh before emptying every store,
// then returns to the helpdesk tab.
func (l *Lifecycle) ClearSessionState() {
	l.stopBackground()

	l.opts.Notifications.Clear()
	l.opts.Tickets.Clear()
	for _, store := range l.adminStores() {
		store.Clear()
	}
	l.opts.BaseData.Clear()
	l.opts.Tabs.SetTab(domain.TabHelpdesk)
}

// Shutdown stops background work and releases ticket timers.
func (l *Lifecycle) Shutdown() {
	l.stopBackground()
	l.opts.Tickets.Clear()
}

// Polling reports whether the notification poller is running.
func (l *Lifecycle) Polling() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.poller != nil
}

func (l *Lifecycle) startBackground(ctx context.Context) {
	l.mu.Lock()
	previous := l.poller
	l.poller = nil
	l.mu.Unlock()
	previous.Stop()

	poller := l.opts.Notifications.StartPolling(ctx)
	l.mu.Lock()
	l.poller = poller
	l.mu.Unlock()

	if l.opts.Realtime != nil {
		l.opts.Realtime.Connect(ctx)
	}
}

func (l *Lifecycle) stopBackground() {
	l.mu.Lock()
	poller := l.poller
	l.poller = nil
	l.mu.Unlock()
	poller.Stop()

	if l.opts.Realtime != nil {
		l.opts.Realtime.Disconnect()
	}
}

func (l *Lifecycle) adminStores() []Clearer {
	var stores []Clearer
	if l.opts.Members != nil {
		stores = append(stores, l.opts.Members)
	}
	if l.opts.Management != nil {
		stores = append(stores, l.opts.Management)
	}
	if l.opts.AuditLogs != nil {
		stores = append(stores, l.opts.AuditLogs)
	}
	return stores
}
