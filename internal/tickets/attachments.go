package tickets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

const (
	msgAttachmentFailed = "讀取附件失敗"
	msgDownloadFailed   = "下載附件失敗"
)

// AttachmentAction selects the inline or download variant of an attachment.
type AttachmentAction string

const (
	// AttachmentView fetches the file for inline display.
	AttachmentView AttachmentAction = "view"
	// AttachmentDownload fetches the file to save it.
	AttachmentDownload AttachmentAction = "download"
)

// Lightbox holds an image fetched for inline display.
type Lightbox struct {
	Open        bool   `json:"open"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Attachment finds an attachment on a loaded ticket.
func (s *Store) Attachment(ticketID, attachmentID int64) (domain.Attachment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.findLocked(ticketID)
	if !ok {
		return domain.Attachment{}, false
	}
	for _, att := range ticket.Attachments {
		if att.ID == attachmentID {
			return att, true
		}
	}
	return domain.Attachment{}, false
}

// IsImageAttachment reports whether an attachment opens in the lightbox.
func IsImageAttachment(att domain.Attachment) bool {
	return att.IsImage()
}

// FetchAttachment fetches attachment bytes with the session token in the
// request header. Filename falls back to attachment-<id>.
func (s *Store) FetchAttachment(ctx context.Context, ticketID, attachmentID int64, action AttachmentAction) (apiclient.Blob, error) {
	if action != AttachmentDownload {
		action = AttachmentView
	}
	path := fmt.Sprintf("%s/%d/attachments/%d/%s", ticketsPath, ticketID, attachmentID, action)
	blob, err := s.client.FetchBlob(ctx, path, msgAttachmentFailed)
	if err != nil {
		return apiclient.Blob{}, err
	}
	if blob.Filename == "" {
		blob.Filename = fmt.Sprintf("attachment-%d", attachmentID)
	}
	return blob, nil
}

// OpenImage loads an image attachment into the lightbox, replacing any
// previous content.
func (s *Store) OpenImage(ctx context.Context, ticketID int64, att domain.Attachment) error {
	blob, err := s.FetchAttachment(ctx, ticketID, att.ID, AttachmentView)
	if err != nil {
		s.itFeedback.Set(errorutil.Message(err, msgAttachmentFailed))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightbox = Lightbox{
		Open:        true,
		Title:       att.OriginalFilename,
		ContentType: blob.ContentType,
		Data:        blob.Data,
	}
	return nil
}

// Lightbox returns the lightbox state.
func (s *Store) Lightbox() Lightbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lightbox
}

// CloseLightbox hides the lightbox and releases its content.
func (s *Store) CloseLightbox() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightbox = Lightbox{}
}

// DownloadAttachment saves an attachment into dir and returns the written
// path.
func (s *Store) DownloadAttachment(ctx context.Context, ticketID int64, att domain.Attachment, dir string) (string, error) {
	blob, err := s.FetchAttachment(ctx, ticketID, att.ID, AttachmentDownload)
	if err != nil {
		s.itFeedback.Set(errorutil.Message(err, msgDownloadFailed))
		return "", err
	}

	name := safeFilename(blob.Filename)
	if name == "" {
		name = safeFilename(att.OriginalFilename)
	}
	if name == "" {
		name = fmt.Sprintf("attachment-%d", att.ID)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, blob.Data, 0o644); err != nil {
		s.itFeedback.Set(msgDownloadFailed)
		s.logger.Warn("write attachment", zap.String("path", target), zap.Error(err))
		return "", errorutil.NewInternalError(err)
	}
	return target, nil
}

func safeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
