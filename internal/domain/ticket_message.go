package domain

import "strings"

// Attachment is an immutable file uploaded with a ticket.
type Attachment struct {
	ID               int64  `json:"id"`
	OriginalFilename string `json:"originalFilename"`
	ContentType      string `json:"contentType"`
	SizeBytes        int64  `json:"sizeBytes"`
}

// IsImage reports whether the attachment renders inline.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// TicketMessage is a reply on a ticket thread.
type TicketMessage struct {
	ID               int64     `json:"id"`
	Content          string    `json:"content"`
	AuthorEmployeeID string    `json:"authorEmployeeId"`
	AuthorName       string    `json:"authorName"`
	AuthorRole       Role      `json:"authorRole"`
	CreatedAt        Timestamp `json:"createdAt"`
}
