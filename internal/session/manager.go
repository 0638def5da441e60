// Package session owns the bearer token and the current member, and drives
// login, registration, restore and logout.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/internal/persistence"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// DefaultTokenKey is the storage key of the persisted bearer token.
const DefaultTokenKey = "helpdesk_auth_token"

const (
	msgLoginFailed    = "登入失敗"
	msgRegisterFailed = "註冊失敗"
	msgSessionExpired = "登入已失效"
	msgLogoutFailed   = "登出失敗"
)

// Hooks are the collaborators notified on session transitions.
type Hooks struct {
	// AfterLogin runs after a login, registration or restore succeeds.
	AfterLogin func(ctx context.Context) error
	// ApplyProfile receives the member whenever identity is (re)applied.
	ApplyProfile func(member domain.Member)
	// ClearState tears down every per-session container.
	ClearState func()
}

// Options configures a Manager.
type Options struct {
	Client   *apiclient.Client
	Store    persistence.TokenStore
	TokenKey string
	Logger   *zap.Logger
	Events   events.Dispatcher
	Now      func() time.Time
}

// Manager is the session state machine.
type Manager struct {
	client   *apiclient.Client
	store    persistence.TokenStore
	tokenKey string
	logger   *zap.Logger
	events   events.Dispatcher
	now      func() time.Time

	mu         sync.RWMutex
	hooks      Hooks
	token      string
	member     *domain.Member
	generation uint64
	loading    bool

	wizard registerWizard

	authError feedback.Text
}

// NewManager constructs a Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		client:   opts.Client,
		store:    opts.Store,
		tokenKey: opts.TokenKey,
		logger:   opts.Logger,
		events:   opts.Events,
		now:      opts.Now,
		wizard:   registerWizard{step: 1},
	}
	if m.store == nil {
		m.store = persistence.NewMemoryTokenStore()
	}
	if m.tokenKey == "" {
		m.tokenKey = DefaultTokenKey
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.events == nil {
		m.events = events.Nop{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// SetHooks installs the transition collaborators.
func (m *Manager) SetHooks(h Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = h
}

// Login authenticates with employee id and password.
func (m *Manager) Login(ctx context.Context, form domain.LoginForm) error {
	return m.authenticate(ctx, "/api/auth/login", form, msgLoginFailed)
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, form domain.RegisterForm) error {
	if msg := validateRegisterForm(form); msg != "" {
		m.authError.Set(msg)
		return errorutil.NewValidationError(msg, nil)
	}
	return m.authenticate(ctx, "/api/auth/register", form, msgRegisterFailed)
}

func (m *Manager) authenticate(ctx context.Context, path string, body any, fallback string) error {
	m.authError.Clear()
	m.setLoading(true)
	defer m.setLoading(false)

	var result domain.AuthResult
	if err := m.client.RequestJSON(ctx, http.MethodPost, path, body, fallback, &result); err != nil {
		m.authError.Set(errorutil.Message(err, fallback))
		return err
	}
	if result.Token == "" {
		m.authError.Set(fallback)
		return errorutil.NewDecodeError(fallback, nil)
	}

	m.applyAuth(ctx, result.Token, result.Member)
	if err := m.afterLogin(ctx); err != nil {
		m.authError.Set(errorutil.Message(err, fallback))
		return err
	}
	return nil
}

// Restore resumes a persisted session. An unauthorized answer clears the
// session silently; other failures leave the stored token for a later retry.
func (m *Manager) Restore(ctx context.Context) error {
	saved, err := m.store.Load(ctx, m.tokenKey)
	if err != nil {
		m.logger.Warn("load session token", zap.Error(err))
		return err
	}
	if saved == "" {
		return nil
	}

	m.mu.Lock()
	m.token = saved
	gen := m.generation
	m.mu.Unlock()

	var me domain.Member
	if err := m.client.RequestJSON(ctx, http.MethodGet, "/api/auth/me", nil, msgSessionExpired, &me); err != nil {
		if errorutil.IsUnauthorized(err) {
			m.logger.Info("stored session rejected; clearing")
			m.ClearSession(ctx)
			return nil
		}
		m.mu.Lock()
		if m.generation == gen {
			m.token = ""
			m.member = nil
			m.generation++
		}
		m.mu.Unlock()
		m.logger.Warn("restore session", zap.Error(err))
		return err
	}

	m.mu.Lock()
	if m.generation != gen || m.token != saved {
		m.mu.Unlock()
		return nil
	}
	m.member = &me
	m.generation++
	hooks := m.hooks
	m.mu.Unlock()

	if hooks.ApplyProfile != nil {
		hooks.ApplyProfile(me)
	}
	m.publishStarted(ctx, me)
	return m.afterLogin(ctx)
}

// Logout notifies the backend best-effort, then clears the session.
func (m *Manager) Logout(ctx context.Context) {
	if m.Token() != "" {
		if err := m.client.RequestJSON(ctx, http.MethodPost, "/api/auth/logout", nil, msgLogoutFailed, nil); err != nil {
			m.logger.Debug("logout request failed", zap.Error(err))
		}
	}
	m.ClearSession(ctx)
}

// ClearSession drops token and member, removes the persisted token and tears
// down dependent state.
func (m *Manager) ClearSession(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.member = nil
	m.generation++
	hooks := m.hooks
	m.mu.Unlock()

	if err := m.store.Delete(ctx, m.tokenKey); err != nil {
		m.logger.Warn("delete session token", zap.Error(err))
	}
	if hooks.ClearState != nil {
		hooks.ClearState()
	}
	m.publish(ctx, events.New(events.EventSessionCleared, 0, m.now(), events.SessionPayload{}))
}

func (m *Manager) applyAuth(ctx context.Context, token string, member domain.Member) {
	m.mu.Lock()
	m.token = token
	m.member = &member
	m.generation++
	hooks := m.hooks
	m.mu.Unlock()

	if err := m.store.Save(ctx, m.tokenKey, token); err != nil {
		m.logger.Warn("persist session token", zap.Error(err))
	}
	if hooks.ApplyProfile != nil {
		hooks.ApplyProfile(member)
	}
	m.publishStarted(ctx, member)
}

func (m *Manager) afterLogin(ctx context.Context) error {
	m.mu.RLock()
	hook := m.hooks.AfterLogin
	m.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

func (m *Manager) publishStarted(ctx context.Context, member domain.Member) {
	evt := events.New(events.EventSessionStarted, 0, m.now(), events.SessionPayload{
		MemberID:   member.ID,
		EmployeeID: member.EmployeeID,
		Role:       member.Role,
	})
	id := member.ID
	evt.ActorMemberID = &id
	m.publish(ctx, evt)
}

func (m *Manager) publish(ctx context.Context, evt events.Event) {
	if err := m.events.Publish(ctx, evt); err != nil {
		m.logger.Warn("publish session event", zap.String("type", string(evt.Type)), zap.Error(err))
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// CurrentMember returns a copy of the signed-in member, or nil.
func (m *Manager) CurrentMember() *domain.Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.member == nil {
		return nil
	}
	member := *m.member
	return &member
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// IsAdmin reports whether the member is an ADMIN.
func (m *Manager) IsAdmin() bool {
	member := m.CurrentMember()
	return member != nil && member.Role == domain.RoleAdmin
}

// IsItOrAdmin reports whether the member is IT or ADMIN.
func (m *Manager) IsItOrAdmin() bool {
	member := m.CurrentMember()
	return member != nil && member.Role.IsPrivileged()
}

// Generation changes on every sign-in and sign-out. Work started under one
// generation must not publish results into another.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Loading reports an in-flight login or registration.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// AuthError returns the last authentication failure message.
func (m *Manager) AuthError() string {
	return m.authError.Message()
}
