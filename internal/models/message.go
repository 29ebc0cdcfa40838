package models

import (
	"strings"
	"time"
)

// Message represents a chat message. Text and ImageURL are nullable on the wire.
type Message struct {
	ID        int                 `json:"id"`
	Sender    User                `json:"sender"`
	Text      *string             `json:"text"`
	ImageURL  *string             `json:"image_url"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Body returns the message text or an empty string.
func (m Message) Body() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// HasImage reports whether the message carries an image reference.
func (m Message) HasImage() bool {
	return m.ImageURL != nil && *m.ImageURL != ""
}

// OutgoingMessage is the body of a message-create call.
type OutgoingMessage struct {
	Text     *string `json:"text"`
	ImageURL *string `json:"image_url"`
}

// NewOutgoingMessage trims text and maps empty values to null.
func NewOutgoingMessage(text, imageURL string) OutgoingMessage {
	var out OutgoingMessage
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		out.Text = &trimmed
	}
	if imageURL != "" {
		out.ImageURL = &imageURL
	}
	return out
}

// Sendable reports whether the message has text or an image.
func (o OutgoingMessage) Sendable() bool {
	return o.Text != nil || o.ImageURL != nil
}

// PendingAttachment is a locally selected image waiting to be uploaded.
// It is never persisted.
type PendingAttachment struct {
	FileName       string
	ContentType    string
	Data           []byte
	PreviewDataURL string
}
