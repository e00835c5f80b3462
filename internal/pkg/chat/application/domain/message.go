package chat

import (
	"strings"
	"time"
)

// Message is a log entry in a conversation. Removal is a tombstone
// (DeletedAt set), never a physical delete; read paths filter tombstones.
// ReadByAll flips false->true exactly once, when the last recipient reaches READ.
type Message struct {
	ID             string     `db:"id"`
	ConversationID string     `db:"conversation_id"`
	SenderID       string     `db:"sender_id"`
	Body           *string    `db:"body"`
	CreatedAt      time.Time  `db:"created_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
	ReadByAll      bool       `db:"read_by_all"`
}

// NewMessage normalizes and validates a message before persistence.
// hasAttachments relaxes the body requirement: an attachment-only message is valid.
func NewMessage(m Message, hasAttachments bool) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, ErrInvalidMessage
	}

	if m.Body != nil {
		trimmed := strings.TrimSpace(*m.Body)
		if trimmed == "" {
			m.Body = nil
		} else {
			m.Body = &trimmed
		}
	}

	if m.Body == nil && !hasAttachments {
		return nil, ErrEmptyMessage
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}

// Sender is the hydrated author info included in outbound message payloads.
type Sender struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// AttachmentView is attachment metadata as exposed on the wire.
type AttachmentView struct {
	ID      string `json:"id"`
	FileURL string `json:"url"`
}

// MessageView is the fully-hydrated message broadcast to room subscribers:
// sender info, attachment metadata and the per-recipient status list.
type MessageView struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	Sender         Sender           `json:"sender"`
	Body           *string          `json:"body,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	ReadByAll      bool             `json:"readByAll"`
	Attachments    []AttachmentView `json:"attachments"`
	Statuses       []MessageStatus  `json:"statuses"`
}
