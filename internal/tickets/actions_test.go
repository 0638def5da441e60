package tickets

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/feedback"
	"github.com/spec-kit/helpdesk-client/internal/testutil"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func completeForm() Form {
	return Form{
		Name:        "Alice",
		Email:       "alice@example.com",
		Subject:     "VPN down",
		Description: "Cannot connect",
		GroupID:     int64Ptr(10),
		CategoryID:  int64Ptr(5),
	}
}

func (f *fixture) serveSubmit(t *testing.T) *int64 {
	t.Helper()
	var seq int64
	f.backend.Handle(http.MethodPost, ticketsPath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(16<<20))
		id := atomic.AddInt64(&seq, 1)
		created := ticket(id, domain.TicketStatusOpen)
		created.Subject = r.FormValue("subject")
		created.Priority = domain.TicketPriority(r.FormValue("priority"))
		groupID, _ := strconv.ParseInt(r.FormValue("groupId"), 10, 64)
		created.GroupID = &groupID
		testutil.WriteJSON(w, http.StatusOK, created)
	})
	return &seq
}

func TestSubmitValidationOrder(t *testing.T) {
	cases := []struct {
		name string
		form Form
		want string
	}{
		{
			name: "missing description and group reports fields first",
			form: Form{Name: "a", Email: "b", Subject: "c"},
			want: "請完整填寫所有欄位。",
		},
		{
			name: "whitespace-only subject counts as missing",
			form: Form{Name: "a", Email: "b", Subject: "  ", Description: "d", GroupID: int64Ptr(1), CategoryID: int64Ptr(1)},
			want: "請完整填寫所有欄位。",
		},
		{
			name: "missing group",
			form: Form{Name: "a", Email: "b", Subject: "c", Description: "d"},
			want: "請選擇工單所屬群組。",
		},
		{
			name: "missing category",
			form: Form{Name: "a", Email: "b", Subject: "c", Description: "d", GroupID: int64Ptr(1)},
			want: "請選擇工單分類。",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, testutil.Member(1, domain.RoleUser))
			f.store.SetForm(tc.form)
			_, err := f.store.SubmitTicket(context.Background())
			require.Error(t, err)
			assert.Equal(t, errorutil.CodeValidation, errorutil.ToDomainError(err).Code)

			msg, kind := f.store.TicketFeedback()
			assert.Equal(t, tc.want, msg)
			assert.Equal(t, feedback.TypeError, kind)
			assert.Zero(t, f.backend.TotalCalls())
		})
	}
}

func TestSubmitFileSizeBoundary(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	f.serveSubmit(t)

	f.store.SetForm(completeForm())
	f.store.SetFiles([]apiclient.Upload{
		apiclient.BytesUpload("ok.txt", []byte("fine")),
		{Name: "big.iso", Size: MaxFileBytes},
	})
	_, err := f.store.SubmitTicket(context.Background())
	require.Error(t, err)
	msg, _ := f.store.TicketFeedback()
	assert.Equal(t, "檔案 big.iso 超過 5MB 限制。", msg)
	assert.Zero(t, f.backend.TotalCalls())

	f.store.SetFiles([]apiclient.Upload{apiclient.BytesUpload("edge.bin", make([]byte, MaxFileBytes-1))})
	created, err := f.store.SubmitTicket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Empty(t, f.store.Files())
}

func TestSubmitSuccessResetsForm(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	f.serveSubmit(t)
	rec := subscribeAll(f.events)

	form := completeForm()
	form.Priority = domain.TicketPriorityUrgent
	f.store.SetForm(form)
	created, err := f.store.SubmitTicket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, created.Priority)

	msg, kind := f.store.TicketFeedback()
	assert.Equal(t, "工單送出成功 #1", msg)
	assert.Equal(t, feedback.TypeSuccess, kind)
	assert.True(t, f.store.IsNewHighlighted(1))
	assert.False(t, f.store.IsOpen(1))

	after := f.store.Form()
	assert.Empty(t, after.Subject)
	assert.Empty(t, after.Description)
	assert.Equal(t, domain.TicketPriorityGeneral, after.Priority)
	assert.Equal(t, "Alice", after.Name)
	assert.Equal(t, int64Ptr(10), after.GroupID)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, rec.types())
}

func TestSubmitRetainsTwentyMostRecent(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	f.serveSubmit(t)

	for i := 0; i < 21; i++ {
		f.store.SetForm(completeForm())
		_, err := f.store.SubmitTicket(context.Background())
		require.NoError(t, err)
	}

	list := f.store.Tickets()
	require.Len(t, list, RetainAfterSubmit)
	assert.Equal(t, int64(21), list[0].ID)
	for _, tk := range list {
		assert.NotEqual(t, int64(1), tk.ID)
	}
}

func TestSubmitBackendError(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	f.backend.JSON(http.MethodPost, ticketsPath, http.StatusBadRequest, map[string]string{})
	f.store.SetForm(completeForm())

	_, err := f.store.SubmitTicket(context.Background())
	require.Error(t, err)
	msg, kind := f.store.TicketFeedback()
	assert.Equal(t, "送出失敗", msg)
	assert.Equal(t, feedback.TypeError, kind)
	assert.Equal(t, "VPN down", f.store.Form().Subject, "form survives a failed submit")
	assert.False(t, f.store.Submitting())
}

func TestUpdateStatusSkipsDeletedTicket(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleAdmin))
	deleted := ticket(1, domain.TicketStatusOpen)
	deleted.Deleted = true
	f.load(t, deleted)
	f.store.SetStatusDraft(1, domain.TicketStatusProceeding)
	before := f.store.StatusDrafts()

	require.NoError(t, f.store.UpdateTicketStatus(context.Background(), 1))

	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(1, "status")))
	assert.Equal(t, before, f.store.StatusDrafts())
}

func TestUpdateStatusSkipsNonEditableDraft(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleAdmin))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	f.store.SetStatusDraft(1, domain.TicketStatusDeleted)

	require.NoError(t, f.store.UpdateTicketStatus(context.Background(), 1))
	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(1, "status")))

	f.load(t, ticket(1, domain.TicketStatusClosed))
	f.store.SetStatusDraft(1, domain.TicketStatus("CLSOED"))

	require.NoError(t, f.store.UpdateTicketStatus(context.Background(), 1))
	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(1, "status")))
}

func TestUpdateStatusReplacesTicket(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	rec := subscribeAll(f.events)
	f.backend.JSON(http.MethodPatch, ticketPath(1, "status"), http.StatusOK, ticket(1, domain.TicketStatusPending))
	f.store.SetStatusDraft(1, domain.TicketStatusPending)

	require.NoError(t, f.store.UpdateTicketStatus(context.Background(), 1))

	assert.Equal(t, map[string]string{"status": "PENDING"}, decodeBody(t, f.backend.LastBody(http.MethodPatch, ticketPath(1, "status"))))
	got, _ := f.store.Ticket(1)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
	assert.False(t, f.store.ActionLoading(1))
	require.Len(t, rec.events, 1)
	payload := rec.events[0].Payload.(events.TicketStatusChangedPayload)
	assert.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusPending, payload.NewStatus)
	require.NotNil(t, rec.events[0].ActorMemberID)
	assert.Equal(t, int64(1), *rec.events[0].ActorMemberID)
}

func TestUpdateStatusFailureSetsITFeedback(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	f.backend.JSON(http.MethodPatch, ticketPath(1, "status"), http.StatusConflict, map[string]string{"message": "stale"})
	f.store.SetStatusDraft(1, domain.TicketStatusClosed)

	err := f.store.UpdateTicketStatus(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "stale", f.store.ITFeedback())
	assert.False(t, f.store.ActionLoading(1))
}

func TestUpdateStatusUnknownTicket(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	err := f.store.UpdateTicketStatus(context.Background(), 42)
	assert.Equal(t, errorutil.CodeNotFound, errorutil.ToDomainError(err).Code)
}

func TestQuickAdvanceCycles(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusClosed))
	f.backend.JSON(http.MethodPatch, ticketPath(1, "status"), http.StatusOK, ticket(1, domain.TicketStatusOpen))

	require.NoError(t, f.store.QuickAdvanceTicketStatus(context.Background(), 1))
	assert.Equal(t, map[string]string{"status": "OPEN"}, decodeBody(t, f.backend.LastBody(http.MethodPatch, ticketPath(1, "status"))))
}

func TestSendReply(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	path := ticketPath(1, "messages")

	f.store.SetReplyDraft(1, "   ")
	require.NoError(t, f.store.SendReply(context.Background(), 1))
	assert.Zero(t, f.backend.Calls(http.MethodPost, path))

	f.backend.JSON(http.MethodPost, path, http.StatusInternalServerError, nil)
	f.store.SetReplyDraft(1, "  on it  ")
	require.Error(t, f.store.SendReply(context.Background(), 1))
	assert.Equal(t, "  on it  ", f.store.ReplyDraft(1), "draft kept until the server confirms")
	assert.Equal(t, "回覆失敗", f.store.ITFeedback())

	replied := ticket(1, domain.TicketStatusProceeding)
	replied.Messages = []domain.TicketMessage{{ID: 1, Content: "on it"}}
	f.backend.JSON(http.MethodPost, path, http.StatusOK, replied)
	require.NoError(t, f.store.SendReply(context.Background(), 1))
	assert.Equal(t, map[string]string{"content": "on it"}, decodeBody(t, f.backend.LastBody(http.MethodPost, path)))
	assert.Empty(t, f.store.ReplyDraft(1))
	assert.Empty(t, f.store.ITFeedback())
	got, _ := f.store.Ticket(1)
	assert.Len(t, got.Messages, 1)
}

func TestSendReplySkipsDeletedTicket(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	deleted := ticket(1, domain.TicketStatusOpen)
	deleted.DeletedAt = &deleted.CreatedAt
	f.load(t, deleted)
	f.store.SetReplyDraft(1, "hello")

	require.NoError(t, f.store.SendReply(context.Background(), 1))
	assert.Zero(t, f.backend.Calls(http.MethodPost, ticketPath(1, "messages")))
}

func TestCanDeleteTicket(t *testing.T) {
	own := ticket(1, domain.TicketStatusOpen)
	own.CreatedByMemberID = int64Ptr(7)
	other := ticket(2, domain.TicketStatusOpen)
	other.CreatedByMemberID = int64Ptr(8)
	deleted := ticket(3, domain.TicketStatusOpen)
	deleted.Deleted = true

	user := newFixture(t, testutil.Member(7, domain.RoleUser)).store
	assert.True(t, user.CanDeleteTicket(own))
	assert.False(t, user.CanDeleteTicket(other))

	for _, role := range []domain.Role{domain.RoleIT, domain.RoleAdmin} {
		privileged := newFixture(t, testutil.Member(9, role)).store
		assert.True(t, privileged.CanDeleteTicket(other), role)
		assert.False(t, privileged.CanDeleteTicket(deleted), role)
	}

	anonymous := newFixture(t, nil).store
	assert.False(t, anonymous.CanDeleteTicket(own))
}

func TestSoftDeleteRequiresPermissionAndConfirmation(t *testing.T) {
	f := newFixture(t, testutil.Member(7, domain.RoleUser))
	mine := ticket(1, domain.TicketStatusOpen)
	mine.CreatedByMemberID = int64Ptr(7)
	theirs := ticket(2, domain.TicketStatusOpen)
	theirs.CreatedByMemberID = int64Ptr(8)
	f.load(t, mine, theirs)

	var prompts []string
	yes := ConfirmFunc(func(_ context.Context, prompt string) bool {
		prompts = append(prompts, prompt)
		return true
	})
	no := ConfirmFunc(func(context.Context, string) bool { return false })

	require.NoError(t, f.store.SoftDeleteTicket(context.Background(), 2, yes))
	assert.Empty(t, prompts, "no prompt without permission")

	require.NoError(t, f.store.SoftDeleteTicket(context.Background(), 1, no))
	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(1, "delete")))

	deleted := mine
	deleted.Deleted = true
	f.backend.JSON(http.MethodPatch, ticketPath(1, "delete"), http.StatusOK, deleted)
	require.NoError(t, f.store.SoftDeleteTicket(context.Background(), 1, yes))
	assert.Equal(t, []string{"確認將工單 #1 標記為刪除？"}, prompts)
	assert.Equal(t, 1, f.backend.Calls(http.MethodPatch, ticketPath(1, "delete")))

	got, _ := f.store.Ticket(1)
	assert.True(t, IsDeleted(got))
	draft, _ := f.store.StatusDraft(1)
	assert.Equal(t, domain.TicketStatusDeleted, draft)

	require.NoError(t, f.store.SoftDeleteTicket(context.Background(), 1, yes))
	assert.Equal(t, 1, f.backend.Calls(http.MethodPatch, ticketPath(1, "delete")), "already deleted")
}

func TestSupervisorApproveGate(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleUser))
	urgentOps := ticket(1, domain.TicketStatusOpen)
	urgentOps.Priority = domain.TicketPriorityUrgent
	urgentOps.GroupID = int64Ptr(10)
	urgentDesk := ticket(2, domain.TicketStatusOpen)
	urgentDesk.Priority = domain.TicketPriorityUrgent
	urgentDesk.GroupID = int64Ptr(20)
	general := ticket(3, domain.TicketStatusOpen)
	general.GroupID = int64Ptr(10)
	f.load(t, urgentOps, urgentDesk, general)

	approved := urgentOps
	approved.SupervisorApproved = true
	f.backend.JSON(http.MethodPatch, ticketPath(1, "supervisor-approve"), http.StatusOK, approved)
	f.backend.JSON(http.MethodPatch, ticketPath(2, "supervisor-approve"), http.StatusOK, urgentDesk)

	require.NoError(t, f.store.SupervisorApproveTicket(context.Background(), 2))
	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(2, "supervisor-approve")), "not a supervisor of group 20")

	require.NoError(t, f.store.SupervisorApproveTicket(context.Background(), 3))
	assert.Zero(t, f.backend.Calls(http.MethodPatch, ticketPath(3, "supervisor-approve")))

	require.NoError(t, f.store.SupervisorApproveTicket(context.Background(), 1))
	got, _ := f.store.Ticket(1)
	assert.True(t, got.SupervisorApproved)
	assert.False(t, f.store.CanSupervisorApprove(got))
}

func TestMutationDiscardedAfterSessionReset(t *testing.T) {
	f := newFixture(t, testutil.Member(1, domain.RoleIT))
	f.load(t, ticket(1, domain.TicketStatusOpen))
	f.backend.Handle(http.MethodPatch, ticketPath(1, "status"), func(w http.ResponseWriter, _ *http.Request) {
		f.store.Clear()
		f.session.Reset()
		testutil.WriteJSON(w, http.StatusOK, ticket(1, domain.TicketStatusClosed))
	})
	f.store.SetStatusDraft(1, domain.TicketStatusClosed)

	require.NoError(t, f.store.UpdateTicketStatus(context.Background(), 1))
	assert.Empty(t, f.store.Tickets())
	assert.Empty(t, f.store.StatusDrafts())
}
