package tickets

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const ticketsPath = "/api/helpdesk/tickets"

const (
	msgLoadFailed      = "讀取工單失敗"
	msgFieldsRequired  = "請完整填寫所有欄位。"
	msgGroupRequired   = "請選擇工單所屬群組。"
	msgCategoryMissing = "請選擇工單分類。"
	msgSubmitFailed    = "送出失敗"
	msgStatusFailed    = "更新狀態失敗"
	msgReplyFailed     = "回覆失敗"
	msgDeleteFailed    = "刪除工單失敗"
	msgApproveFailed   = "主管確認失敗"
)

func ticketPath(id int64, action string) string {
	return fmt.Sprintf("%s/%d/%s", ticketsPath, id, action)
}

// LoadTickets replaces the list with the server's role-scoped tickets. Ids
// not seen in a non-empty previous list get a "new" highlight. On failure
// the previous list is kept.
func (s *Store) LoadTickets(ctx context.Context) error {
	gen := s.session.Generation()
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.ticketFeedback.Clear()

	var data []domain.Ticket
	err := s.client.RequestJSON(ctx, http.MethodGet, ticketsPath, nil, msgLoadFailed, &data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if gen != s.session.Generation() {
		return nil
	}
	if err != nil {
		s.ticketFeedback.SetError(errorutil.Message(err, msgLoadFailed))
		s.logger.Warn("load tickets", zap.Error(err))
		return err
	}

	previous := make(map[int64]bool, len(s.tickets))
	for _, t := range s.tickets {
		previous[t.ID] = true
	}
	next := make([]domain.Ticket, 0, len(data))
	for _, raw := range data {
		t := NormalizeTicket(raw)
		next = append(next, t)
		if len(previous) > 0 && !previous[t.ID] {
			s.highlightLocked(t.ID, HighlightNew, NewHighlightDuration)
		}
		s.seedScaffoldingLocked(t)
	}
	s.tickets = next
	return nil
}

// SubmitTicket validates the form and creates a ticket. Validation stops at
// the first failure: required fields, group, category, then file sizes.
func (s *Store) SubmitTicket(ctx context.Context) (domain.Ticket, error) {
	s.ticketFeedback.Clear()

	s.mu.Lock()
	form := s.form.clone()
	files := append([]apiclient.Upload(nil), s.files...)
	s.mu.Unlock()

	if err := validateForm(form, files); err != nil {
		s.ticketFeedback.SetError(errorutil.Message(err, msgSubmitFailed))
		return domain.Ticket{}, err
	}

	gen := s.session.Generation()
	s.mu.Lock()
	s.submitting++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting--
		s.mu.Unlock()
	}()

	fields := []apiclient.Field{
		{Name: "name", Value: form.Name},
		{Name: "email", Value: form.Email},
		{Name: "subject", Value: form.Subject},
		{Name: "description", Value: form.Description},
		{Name: "groupId", Value: strconv.FormatInt(*form.GroupID, 10)},
		{Name: "categoryId", Value: strconv.FormatInt(*form.CategoryID, 10)},
		{Name: "priority", Value: string(NormalizePriority(string(form.Priority)))},
	}
	var raw domain.Ticket
	err := s.client.PostMultipart(ctx, ticketsPath, fields, "files", files, msgSubmitFailed, &raw)
	if err != nil {
		if gen == s.session.Generation() {
			s.ticketFeedback.SetError(errorutil.Message(err, msgSubmitFailed))
		}
		return domain.Ticket{}, err
	}

	created := NormalizeTicket(raw)
	var groups []domain.MyGroup
	var categories []domain.HelpdeskCategory
	if s.refs != nil {
		groups = s.refs.MyGroups()
		categories = s.refs.Categories()
	}

	s.mu.Lock()
	if gen != s.session.Generation() {
		s.mu.Unlock()
		return created.Clone(), nil
	}
	list := make([]domain.Ticket, 0, len(s.tickets)+1)
	list = append(list, created)
	list = append(list, s.tickets...)
	if len(list) > RetainAfterSubmit {
		list = list[:RetainAfterSubmit]
	}
	s.tickets = list
	s.highlightLocked(created.ID, HighlightNew, NewHighlightDuration)
	s.statusDrafts[created.ID] = EffectiveStatus(created)
	s.replyDrafts[created.ID] = ""
	s.openTickets[created.ID] = false
	s.form.Subject = ""
	s.form.Description = ""
	s.form.Priority = domain.TicketPriorityGeneral
	s.files = nil
	if !hasID(s.form.GroupID) && len(groups) > 0 {
		id := groups[0].ID
		s.form.GroupID = &id
	}
	if !hasID(s.form.CategoryID) && len(categories) > 0 {
		id := categories[0].ID
		s.form.CategoryID = &id
	}
	s.mu.Unlock()

	s.ticketFeedback.SetSuccess(fmt.Sprintf("工單送出成功 #%d", created.ID))
	s.publish(ctx, events.EventTicketCreated, created.ID, events.TicketCreatedPayload{
		Subject:     created.Subject,
		Priority:    created.Priority,
		GroupID:     cloneID(created.GroupID),
		Attachments: len(files),
	})
	return created.Clone(), nil
}

func validateForm(form Form, files []apiclient.Upload) error {
	if blank(form.Name) || blank(form.Email) || blank(form.Subject) || blank(form.Description) {
		return errorutil.NewValidationError(msgFieldsRequired, nil)
	}
	if !hasID(form.GroupID) {
		return errorutil.NewValidationError(msgGroupRequired, nil)
	}
	if !hasID(form.CategoryID) {
		return errorutil.NewValidationError(msgCategoryMissing, nil)
	}
	for _, f := range files {
		if f.Size >= MaxFileBytes {
			return errorutil.NewValidationError(
				fmt.Sprintf("檔案 %s 超過 5MB 限制。", f.Name),
				map[string]any{"file": f.Name, "size": f.Size},
			)
		}
	}
	return nil
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// UpdateTicketStatus sends the drafted status. Deleted tickets and drafts
// outside the editable set are ignored without a request.
func (s *Store) UpdateTicketStatus(ctx context.Context, id int64) error {
	s.mu.Lock()
	ticket, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	draft, editable := ParseEditableStatus(string(s.statusDrafts[id]))
	if IsDeleted(ticket) || !editable {
		s.mu.Unlock()
		return nil
	}
	previous := EffectiveStatus(ticket)
	s.mu.Unlock()

	updated, err := s.mutate(ctx, id, http.MethodPatch, "status", map[string]string{"status": string(draft)}, msgStatusFailed, nil)
	if err != nil || updated == nil {
		return err
	}
	s.publish(ctx, events.EventTicketStatusChanged, id, events.TicketStatusChangedPayload{
		OldStatus: previous,
		NewStatus: EffectiveStatus(*updated),
	})
	return nil
}

// QuickAdvanceTicketStatus moves a ticket one step along
// OPEN, PROCEEDING, PENDING, CLOSED and back to OPEN.
func (s *Store) QuickAdvanceTicketStatus(ctx context.Context, id int64) error {
	s.mu.Lock()
	ticket, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	if IsDeleted(ticket) {
		s.mu.Unlock()
		return nil
	}
	s.statusDrafts[id] = NextStatus(EffectiveStatus(ticket))
	s.mu.Unlock()
	return s.UpdateTicketStatus(ctx, id)
}

// SendReply posts the trimmed reply draft. The draft is cleared only after
// the server accepts it.
func (s *Store) SendReply(ctx context.Context, id int64) error {
	s.mu.Lock()
	ticket, ok := s.findLocked(id)
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	content := strings.TrimSpace(s.replyDrafts[id])
	if IsDeleted(ticket) || content == "" {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	updated, err := s.mutate(ctx, id, http.MethodPost, "messages", map[string]string{"content": content}, msgReplyFailed, func() {
		s.replyDrafts[id] = ""
	})
	if err != nil || updated == nil {
		return err
	}
	s.publish(ctx, events.EventTicketReplied, id, events.TicketRepliedPayload{
		BodyPreview:  preview(content, 80),
		MessageCount: len(updated.Messages),
	})
	return nil
}

// SoftDeleteTicket marks a ticket deleted after confirm answers yes. It is
// a no-op when the current member may not delete the ticket.
func (s *Store) SoftDeleteTicket(ctx context.Context, id int64, confirm Confirmer) error {
	ticket, ok := s.Ticket(id)
	if !ok {
		return notFound(id)
	}
	if !s.CanDeleteTicket(ticket) {
		return nil
	}
	if confirm == nil || !confirm.Confirm(ctx, fmt.Sprintf("確認將工單 #%d 標記為刪除？", id)) {
		return nil
	}

	updated, err := s.mutate(ctx, id, http.MethodPatch, "delete", nil, msgDeleteFailed, nil)
	if err != nil || updated == nil {
		return err
	}
	s.publish(ctx, events.EventTicketDeleted, id, nil)
	return nil
}

// SupervisorApproveTicket approves an URGENT ticket as a group supervisor.
func (s *Store) SupervisorApproveTicket(ctx context.Context, id int64) error {
	ticket, ok := s.Ticket(id)
	if !ok {
		return notFound(id)
	}
	if !s.CanSupervisorApprove(ticket) {
		return nil
	}

	updated, err := s.mutate(ctx, id, http.MethodPatch, "supervisor-approve", nil, msgApproveFailed, nil)
	if err != nil || updated == nil {
		return err
	}
	s.publish(ctx, events.EventTicketApproved, id, nil)
	return nil
}

// mutate runs one per-ticket request and merges the returned ticket. A nil
// ticket with a nil error means the session changed while in flight.
func (s *Store) mutate(ctx context.Context, id int64, method, action string, body any, fallback string, onSuccess func()) (*domain.Ticket, error) {
	gen := s.session.Generation()
	s.mu.Lock()
	s.beginAction(id)
	s.mu.Unlock()
	s.itFeedback.Clear()

	var raw domain.Ticket
	err := s.client.RequestJSON(ctx, method, ticketPath(id, action), body, fallback, &raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endAction(id)
	if gen != s.session.Generation() {
		return nil, nil
	}
	if err != nil {
		s.itFeedback.Set(errorutil.Message(err, fallback))
		s.logger.Warn("ticket action failed",
			zap.Int64("ticket_id", id),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}
	if onSuccess != nil {
		onSuccess()
	}
	updated := s.replaceLocked(raw)
	return &updated, nil
}

// CanDeleteTicket reports whether the current member may soft-delete t.
func (s *Store) CanDeleteTicket(t domain.Ticket) bool {
	member := s.session.CurrentMember()
	if member == nil || IsDeleted(t) {
		return false
	}
	if member.Role.IsPrivileged() {
		return true
	}
	return t.CreatedByMemberID != nil && *t.CreatedByMemberID == member.ID
}

// CanSupervisorApprove reports whether the current member may approve t.
func (s *Store) CanSupervisorApprove(t domain.Ticket) bool {
	if NormalizePriority(string(t.Priority)) != domain.TicketPriorityUrgent {
		return false
	}
	if t.SupervisorApproved || IsDeleted(t) {
		return false
	}
	return s.refs != nil && s.refs.IsSupervisorOf(t.GroupID)
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
