package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-client/internal/admin"
	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-client/internal/auth"
	"github.com/spec-kit/helpdesk-client/internal/basedata"
	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/dashboard"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/notifications"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/internal/testutil"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type apiFixture struct {
	app     *fiber.App
	backend *testutil.Backend
	session *testutil.Session
	tickets *tickets.Store
	notifs  *notifications.Service
	tabs    *dashboard.Tabs
	members *admin.Members
	manage  *admin.Management
	audit   *admin.AuditLogs
	exports string
	token   string
}

func newAPIFixture(t *testing.T, role domain.Role, deps map[string]handlers.Pinger) *apiFixture {
	t.Helper()
	f := &apiFixture{
		backend: testutil.NewBackend(t),
		session: testutil.NewSession(testutil.Member(1, role)),
		tabs:    dashboard.NewTabs(),
		exports: t.TempDir(),
	}
	if role == "" {
		f.session = testutil.NewSession(nil)
	}
	fake := clock.Fake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	client := f.backend.Client("backend-token")
	base := basedata.NewStore(client, f.session, nil)
	f.tickets = tickets.NewStore(tickets.Options{Client: client, Session: f.session, RefData: base, Clock: fake})
	f.notifs = notifications.NewService(notifications.Options{
		Client:  client,
		Session: f.session,
		Tickets: f.tickets,
		Tabs:    f.tabs,
		Clock:   fake,
	})
	f.members = admin.NewMembers(client, f.session, nil)
	f.manage = admin.NewManagement(client, f.session, base, nil)
	f.audit = admin.NewAuditLogs(client, f.session, nil)
	lifecycle := dashboard.NewLifecycle(dashboard.Options{
		Session:       f.session,
		Tabs:          f.tabs,
		BaseData:      base,
		Tickets:       f.tickets,
		Notifications: f.notifs,
	})

	hash, err := auth.HashPassword("letmein", bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	f.token, _, err = tokens.GenerateToken(auth.LocalSubject)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	f.app = fiber.New()
	RegisterMiddlewares(f.app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(f.app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-client", "test", deps),
		LocalAuth:      handlers.NewLocalAuthHandler(tokens, hash),
		State:          handlers.NewStateHandler(f.session, lifecycle, f.tickets, f.notifs, nil, metrics),
		Tickets:        handlers.NewTicketsHandler(f.tickets, f.notifs),
		Notifications:  handlers.NewNotificationsHandler(f.notifs, f.tabs),
		Attachments:    handlers.NewAttachmentsHandler(f.tickets),
		Admin:          handlers.NewAdminHandler(f.members, f.manage, f.audit, f.exports),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Session:        f.session,
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, authed bool) (*nethttp.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *apiFixture) seed(t *testing.T, list ...domain.Ticket) {
	t.Helper()
	f.backend.JSON(nethttp.MethodGet, "/api/helpdesk/tickets", nethttp.StatusOK, list)
	require.NoError(t, f.tickets.LoadTickets(context.Background()))
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, raw []byte) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func openTicket(id int64) domain.Ticket {
	return domain.Ticket{ID: id, Subject: "Printer", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityGeneral}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, map[string]handlers.Pinger{
		"backend":       pinger{},
		"session_store": pinger{err: errors.New("redis down")},
	})

	resp, _ := f.do(t, nethttp.MethodGet, "/health/live", nil, false)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, raw := f.do(t, nethttp.MethodGet, "/health/ready", nil, false)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(raw), "redis down")
}

func TestIssueToken(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)

	resp, raw := f.do(t, nethttp.MethodPost, "/local/token", dto.TokenRequest{Password: "nope"}, false)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decode[any](t, raw).Error.Code)

	resp, raw = f.do(t, nethttp.MethodPost, "/local/token", dto.TokenRequest{Password: "letmein"}, false)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	issued := decode[dto.AuthResponse](t, raw).Data
	assert.NotEmpty(t, issued.Token)

	f.token = issued.Token
	resp, _ = f.do(t, nethttp.MethodGet, "/state/session", nil, true)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)

	resp, raw := f.do(t, nethttp.MethodGet, "/state/tickets", nil, false)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing authorization header", decode[any](t, raw).Error.Message)
}

func TestSignedOutSession(t *testing.T) {
	f := newAPIFixture(t, "", nil)

	resp, raw := f.do(t, nethttp.MethodGet, "/state/session", nil, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	session := decode[dto.SessionResponse](t, raw).Data
	assert.False(t, session.Authenticated)
	assert.Equal(t, domain.TabHelpdesk, session.Tab)

	resp, _ = f.do(t, nethttp.MethodGet, "/state/tickets", nil, true)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestTicketViews(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	closed := openTicket(2)
	closed.Status = domain.TicketStatusClosed
	f.seed(t, openTicket(1), closed)

	resp, raw := f.do(t, nethttp.MethodGet, "/state/tickets", nil, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	active := decode[dto.TicketListResponse](t, raw).Data
	require.Len(t, active.Items, 1)
	assert.Equal(t, int64(1), active.Items[0].Ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, active.Items[0].StatusDraft)

	_, raw = f.do(t, nethttp.MethodGet, "/state/tickets?view=archive", nil, true)
	archive := decode[dto.TicketListResponse](t, raw).Data
	require.Len(t, archive.Items, 1)
	assert.Equal(t, int64(2), archive.Items[0].Ticket.ID)

	resp, _ = f.do(t, nethttp.MethodGet, "/state/tickets?view=bogus", nil, true)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	_, raw = f.do(t, nethttp.MethodGet, "/state/stats", nil, true)
	stats := decode[tickets.Stats](t, raw).Data
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Closed)
}

func TestFilters(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)

	resp, raw := f.do(t, nethttp.MethodPut, "/state/filters", map[string]any{"keyword": "printer", "sort": "sideways"}, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	filters := decode[tickets.Filters](t, raw).Data
	assert.Equal(t, "printer", filters.Keyword)
	assert.Equal(t, tickets.SortNewest, filters.Sort)
	assert.Equal(t, tickets.StatusFilterAll, filters.ActiveStatus)
}

func TestUpdateStatusAction(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	f.seed(t, openTicket(1))
	updated := openTicket(1)
	updated.Status = domain.TicketStatusPending
	f.backend.JSON(nethttp.MethodPatch, "/api/helpdesk/tickets/1/status", nethttp.StatusOK, updated)

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/1/status", dto.StatusRequest{Status: "pending"}, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(raw))
	view := decode[dto.TicketView](t, raw).Data
	assert.Equal(t, domain.TicketStatusPending, view.EffectiveStatus)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(f.backend.LastBody(nethttp.MethodPatch, "/api/helpdesk/tickets/1/status")))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	closed := openTicket(5)
	closed.Status = domain.TicketStatusClosed
	f.seed(t, closed)
	f.backend.JSON(nethttp.MethodPatch, "/api/helpdesk/tickets/5/status", nethttp.StatusOK, openTicket(5))

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/5/status", dto.StatusRequest{Status: "CLSOED"}, true)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", decode[any](t, raw).Error.Code)
	assert.Zero(t, f.backend.Calls(nethttp.MethodPatch, "/api/helpdesk/tickets/5/status"))
	draft, _ := f.tickets.StatusDraft(5)
	assert.Equal(t, domain.TicketStatusClosed, draft)
}

func TestUpdateStatusRequiresPrivilegedRole(t *testing.T) {
	f := newAPIFixture(t, domain.RoleUser, nil)
	f.seed(t, openTicket(1))

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/1/advance", nil, true)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decode[any](t, raw).Error.Code)
}

func TestActionErrors(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	f.seed(t, openTicket(1))
	f.backend.JSON(nethttp.MethodPost, "/api/helpdesk/tickets/1/messages", nethttp.StatusBadRequest, map[string]string{"message": "工單已關閉"})

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/1/reply", dto.ReplyRequest{Content: "hello"}, true)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "工單已關閉", decode[any](t, raw).Error.Message)
	assert.Equal(t, "hello", f.tickets.ReplyDraft(1))

	resp, _ = f.do(t, nethttp.MethodPost, "/actions/tickets/99/advance", nil, true)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, nethttp.MethodPost, "/actions/tickets/abc/toggle", nil, true)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	f.seed(t, openTicket(1))
	deleted := openTicket(1)
	deleted.Deleted = true
	f.backend.JSON(nethttp.MethodPatch, "/api/helpdesk/tickets/1/delete", nethttp.StatusOK, deleted)

	resp, _ := f.do(t, nethttp.MethodPost, "/actions/tickets/1/delete", nil, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Zero(t, f.backend.Calls(nethttp.MethodPatch, "/api/helpdesk/tickets/1/delete"))

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/1/delete", dto.DeleteRequest{Confirm: true}, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.TicketStatusDeleted, decode[dto.TicketView](t, raw).Data.EffectiveStatus)
}

func TestToggle(t *testing.T) {
	f := newAPIFixture(t, domain.RoleUser, nil)
	f.seed(t, openTicket(1))

	_, raw := f.do(t, nethttp.MethodPost, "/actions/tickets/1/toggle", nil, true)
	assert.True(t, decode[dto.ToggleResponse](t, raw).Data.Open)
	_, raw = f.do(t, nethttp.MethodPost, "/actions/tickets/1/toggle", nil, true)
	assert.False(t, decode[dto.ToggleResponse](t, raw).Data.Open)
}

func TestNotificationActions(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)
	f.seed(t, openTicket(7))
	ticketID := int64(7)
	f.backend.JSON(nethttp.MethodGet, "/api/notifications", nethttp.StatusOK, domain.NotificationList{
		Notifications: []domain.NotificationItem{{ID: 3, TicketID: &ticketID}},
		UnreadCount:   1,
	})
	f.backend.JSON(nethttp.MethodPatch, "/api/notifications/3/read", nethttp.StatusOK, nil)
	f.backend.JSON(nethttp.MethodPatch, "/api/notifications/read-all", nethttp.StatusOK, nil)
	require.NoError(t, f.notifs.Load(context.Background(), false))

	resp, raw := f.do(t, nethttp.MethodPost, "/actions/notifications/3/open", nil, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, domain.TabITDesk, f.tabs.Tab())
	assert.True(t, f.tickets.IsOpen(7))

	resp, _ = f.do(t, nethttp.MethodPost, "/actions/notifications/404/open", nil, true)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, nethttp.MethodPost, "/actions/notifications/read-all", nil, true)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Zero(t, f.notifs.UnreadCount())

	_, raw = f.do(t, nethttp.MethodGet, "/state/notifications", nil, true)
	assert.Len(t, decode[dto.NotificationsResponse](t, raw).Data.Items, 1)
}

func TestAttachmentStream(t *testing.T) {
	f := newAPIFixture(t, domain.RoleUser, nil)
	f.backend.Handle(nethttp.MethodGet, "/api/helpdesk/tickets/4/attachments/9/download", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "Bearer backend-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="shot.png"`)
		_, _ = w.Write([]byte("png-bytes"))
	})

	resp, raw := f.do(t, nethttp.MethodGet, "/attachments/4/9?download=true", nil, true)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", string(raw))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename*=UTF-8''shot.png", resp.Header.Get("Content-Disposition"))
}

func TestUnknownRoute(t *testing.T) {
	f := newAPIFixture(t, domain.RoleIT, nil)

	resp, raw := f.do(t, nethttp.MethodGet, "/state/nowhere", nil, true)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[any](t, raw).Error.Code)
}
