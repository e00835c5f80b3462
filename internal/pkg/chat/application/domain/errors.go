package chat

import "errors"

// Domain-level errors for chat behaviors. Controllers map these to wire
// codes; use cases wrap infrastructure failures separately.
var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrNotMember            = errors.New("chat: user is not a member of the conversation")
	ErrMessageNotFound      = errors.New("chat: message not found")
	ErrSenderNotFound       = errors.New("chat: sender not found")
	ErrUserNotFound         = errors.New("chat: user not found")
	ErrAttachmentNotFound   = errors.New("chat: attachment not found")
	ErrEmptyMessage         = errors.New("chat: empty message (no body or attachment)")
	ErrInvalidMessage       = errors.New("chat: conversation_id and sender_id are required")
	ErrInvalidStatus        = errors.New("chat: unknown delivery status")
)
