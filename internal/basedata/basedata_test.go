package basedata

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/testutil"
)

func int64Ptr(v int64) *int64 { return &v }

func TestLoadAndSupervisor(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.JSON(http.MethodGet, "/api/groups/mine", http.StatusOK, []domain.MyGroup{
		{ID: 1, Name: "Ops", Supervisor: true},
		{ID: 2, Name: "Desk"},
	})
	backend.JSON(http.MethodGet, "/api/helpdesk/categories", http.StatusOK, []domain.HelpdeskCategory{{ID: 7, Name: "Network"}})

	store := NewStore(backend.Client("tok"), testutil.NewSession(testutil.Member(1, domain.RoleUser)), nil)
	store.LoadMyGroups(context.Background())
	store.LoadCategories(context.Background())

	assert.Len(t, store.MyGroups(), 2)
	assert.Equal(t, "Network", store.Categories()[0].Name)
	assert.True(t, store.IsSupervisorOf(int64Ptr(1)))
	assert.False(t, store.IsSupervisorOf(int64Ptr(2)))
	assert.False(t, store.IsSupervisorOf(int64Ptr(3)))
	assert.False(t, store.IsSupervisorOf(nil))

	store.Clear()
	assert.Empty(t, store.MyGroups())
	assert.Empty(t, store.Categories())
}

func TestLoadFailureResetsToEmpty(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.JSON(http.MethodGet, "/api/groups/mine", http.StatusOK, []domain.MyGroup{{ID: 1, Supervisor: true}})
	store := NewStore(backend.Client("tok"), testutil.NewSession(testutil.Member(1, domain.RoleUser)), nil)
	store.LoadMyGroups(context.Background())
	assert.Len(t, store.MyGroups(), 1)

	backend.JSON(http.MethodGet, "/api/groups/mine", http.StatusInternalServerError, nil)
	store.LoadMyGroups(context.Background())
	assert.NotNil(t, store.MyGroups())
	assert.Empty(t, store.MyGroups())
}

func TestLoadSkippedWhenSignedOut(t *testing.T) {
	backend := testutil.NewBackend(t)
	store := NewStore(backend.Client(""), testutil.NewSession(nil), nil)
	store.LoadMyGroups(context.Background())
	store.LoadCategories(context.Background())
	assert.Zero(t, backend.TotalCalls())
}

func TestStaleResponseDiscardedAfterSessionReset(t *testing.T) {
	backend := testutil.NewBackend(t)
	session := testutil.NewSession(testutil.Member(1, domain.RoleUser))
	backend.Handle(http.MethodGet, "/api/groups/mine", func(w http.ResponseWriter, r *http.Request) {
		session.Reset()
		testutil.WriteJSON(w, http.StatusOK, []domain.MyGroup{{ID: 1}})
	})
	store := NewStore(backend.Client("tok"), session, nil)
	store.LoadMyGroups(context.Background())
	assert.Empty(t, store.MyGroups())
}
