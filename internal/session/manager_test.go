package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/persistence"
	"github.com/spec-kit/helpdesk-client/internal/testutil"
)

type recorder struct {
	calls   []string
	profile domain.Member
}

func newManager(t *testing.T) (*Manager, *testutil.Backend, *persistence.MemoryTokenStore, *recorder) {
	t.Helper()
	backend := testutil.NewBackend(t)
	store := persistence.NewMemoryTokenStore()
	var mgr *Manager
	mgr = NewManager(Options{
		Client: backend.ClientWith(func() string { return mgr.Token() }),
		Store:  store,
	})
	rec := &recorder{}
	mgr.SetHooks(Hooks{
		AfterLogin: func(context.Context) error {
			rec.calls = append(rec.calls, "after-login")
			return nil
		},
		ApplyProfile: func(m domain.Member) {
			rec.calls = append(rec.calls, "apply-profile")
			rec.profile = m
		},
		ClearState: func() {
			rec.calls = append(rec.calls, "clear")
		},
	})
	return mgr, backend, store, rec
}

func authResult(token string, role domain.Role) domain.AuthResult {
	return domain.AuthResult{Token: token, Member: *testutil.Member(5, role)}
}

func TestLoginAppliesSession(t *testing.T) {
	mgr, backend, store, rec := newManager(t)
	backend.JSON(http.MethodPost, "/api/auth/login", http.StatusOK, authResult("tok-1", domain.RoleIT))

	before := mgr.Generation()
	require.NoError(t, mgr.Login(context.Background(), domain.LoginForm{EmployeeID: "E5", Password: "secret123"}))

	assert.True(t, mgr.IsAuthenticated())
	assert.True(t, mgr.IsItOrAdmin())
	assert.False(t, mgr.IsAdmin())
	assert.Equal(t, int64(5), mgr.CurrentMember().ID)
	assert.Greater(t, mgr.Generation(), before)
	assert.Equal(t, []string{"apply-profile", "after-login"}, rec.calls)
	assert.Equal(t, "E5", rec.profile.EmployeeID)
	assert.JSONEq(t, `{"employeeId":"E5","password":"secret123"}`, string(backend.LastBody(http.MethodPost, "/api/auth/login")))

	saved, _ := store.Load(context.Background(), DefaultTokenKey)
	assert.Equal(t, "tok-1", saved)
	assert.False(t, mgr.Loading())
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	mgr, backend, _, rec := newManager(t)
	backend.JSON(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, map[string]string{"message": "帳號或密碼錯誤"})

	err := mgr.Login(context.Background(), domain.LoginForm{EmployeeID: "E5", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, "帳號或密碼錯誤", mgr.AuthError())
	assert.False(t, mgr.IsAuthenticated())
	assert.Empty(t, rec.calls)
}

func TestLoginFallbackMessage(t *testing.T) {
	mgr, backend, _, _ := newManager(t)
	backend.JSON(http.MethodPost, "/api/auth/login", http.StatusInternalServerError, nil)

	require.Error(t, mgr.Login(context.Background(), domain.LoginForm{}))
	assert.Equal(t, msgLoginFailed, mgr.AuthError())
}

func TestRestoreWithoutStoredToken(t *testing.T) {
	mgr, backend, _, rec := newManager(t)
	require.NoError(t, mgr.Restore(context.Background()))
	assert.Zero(t, backend.TotalCalls())
	assert.Empty(t, rec.calls)
}

func TestRestoreSuccess(t *testing.T) {
	mgr, backend, store, rec := newManager(t)
	require.NoError(t, store.Save(context.Background(), DefaultTokenKey, "tok-saved"))
	backend.JSON(http.MethodGet, "/api/auth/me", http.StatusOK, testutil.Member(5, domain.RoleUser))

	require.NoError(t, mgr.Restore(context.Background()))
	assert.Equal(t, "Bearer tok-saved", backend.LastAuthorization(http.MethodGet, "/api/auth/me"))
	assert.Equal(t, "tok-saved", mgr.Token())
	assert.Equal(t, []string{"apply-profile", "after-login"}, rec.calls)
}

func TestRestoreUnauthorizedClearsSilently(t *testing.T) {
	mgr, backend, store, rec := newManager(t)
	require.NoError(t, store.Save(context.Background(), DefaultTokenKey, "tok-stale"))
	backend.JSON(http.MethodGet, "/api/auth/me", http.StatusUnauthorized, nil)

	require.NoError(t, mgr.Restore(context.Background()))
	assert.False(t, mgr.IsAuthenticated())
	assert.Empty(t, mgr.AuthError())
	assert.Equal(t, []string{"clear"}, rec.calls)
	saved, _ := store.Load(context.Background(), DefaultTokenKey)
	assert.Empty(t, saved)
}

func TestRestoreTransientFailureKeepsStoredToken(t *testing.T) {
	mgr, backend, store, rec := newManager(t)
	require.NoError(t, store.Save(context.Background(), DefaultTokenKey, "tok-saved"))
	backend.JSON(http.MethodGet, "/api/auth/me", http.StatusServiceUnavailable, nil)

	require.Error(t, mgr.Restore(context.Background()))
	assert.False(t, mgr.IsAuthenticated())
	assert.Empty(t, rec.calls)
	saved, _ := store.Load(context.Background(), DefaultTokenKey)
	assert.Equal(t, "tok-saved", saved)
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	mgr, backend, store, rec := newManager(t)
	backend.JSON(http.MethodPost, "/api/auth/login", http.StatusOK, authResult("tok-1", domain.RoleUser))
	backend.JSON(http.MethodPost, "/api/auth/logout", http.StatusInternalServerError, nil)
	require.NoError(t, mgr.Login(context.Background(), domain.LoginForm{EmployeeID: "E5", Password: "x"}))
	gen := mgr.Generation()

	mgr.Logout(context.Background())

	assert.Equal(t, 1, backend.Calls(http.MethodPost, "/api/auth/logout"))
	assert.Equal(t, "Bearer tok-1", backend.LastAuthorization(http.MethodPost, "/api/auth/logout"))
	assert.False(t, mgr.IsAuthenticated())
	assert.Nil(t, mgr.CurrentMember())
	assert.Greater(t, mgr.Generation(), gen)
	assert.Equal(t, "clear", rec.calls[len(rec.calls)-1])
	saved, _ := store.Load(context.Background(), DefaultTokenKey)
	assert.Empty(t, saved)
}

func TestLogoutWithoutTokenSkipsBackend(t *testing.T) {
	mgr, backend, _, rec := newManager(t)
	mgr.Logout(context.Background())
	assert.Zero(t, backend.TotalCalls())
	assert.Equal(t, []string{"clear"}, rec.calls)
}
