// Package chat defines the inbound update envelope consumed from the chat
// transport. The wire shape mirrors the bot platform's JSON payloads; only
// the fields the ingestion pipeline reads are modeled.
package chat

import (
	"strings"
	"time"
)

// Update is the envelope delivered to the webhook. Exactly one of Message
// or EditedMessage is set for the events this service handles.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Msg returns the carried message regardless of whether it is new or edited,
// or nil if the update carries neither.
func (u *Update) Msg() *Message {
	if u == nil {
		return nil
	}
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

// IsEdit reports whether the update is an edit of a previously sent message
func (u *Update) IsEdit() bool {
	return u != nil && u.Message == nil && u.EditedMessage != nil
}

// Message is a single chat message
type Message struct {
	MessageID int64        `json:"message_id"`
	From      *User        `json:"from,omitempty"`
	Chat      Conversation `json:"chat"`
	Date      int64        `json:"date"`
	Text      string       `json:"text,omitempty"`
	Caption   string       `json:"caption,omitempty"`
	Photos    []PhotoSize  `json:"photo,omitempty"`

	// Forwarding provenance. A message is forwarded when either the original
	// sender or the original source conversation is present.
	ForwardFrom          *User         `json:"forward_from,omitempty"`
	ForwardFromChat      *Conversation `json:"forward_from_chat,omitempty"`
	ForwardFromMessageID int64         `json:"forward_from_message_id,omitempty"`
}

// IsForwarded reports whether the message carries forwarding provenance
func (m *Message) IsForwarded() bool {
	return m != nil && (m.ForwardFrom != nil || m.ForwardFromChat != nil)
}

// TextOrCaption returns the message text, falling back to the media caption
func (m *Message) TextOrCaption() string {
	if m == nil {
		return ""
	}
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return m.Caption
}

// HasPhoto reports whether the message carries at least one attached photo
func (m *Message) HasPhoto() bool {
	return m != nil && len(m.Photos) > 0
}

// SentAt returns the message timestamp
func (m *Message) SentAt() time.Time {
	return time.Unix(m.Date, 0).UTC()
}

// Conversation identifies the chat a message belongs to
type Conversation struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// IsDirect reports whether the conversation is a one-on-one chat with the bot
func (c Conversation) IsDirect() bool {
	return c.Type == "private"
}

// User identifies a message originator
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns the human-readable name of the user, preferring the
// first/last name pair and falling back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	return u.Username
}

// PhotoSize is one rendition of an attached photo
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
