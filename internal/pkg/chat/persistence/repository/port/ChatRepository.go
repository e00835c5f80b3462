package repository

import (
	"context"
	"time"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the chat domain.
// Adapters translate store-level "no rows" into the domain not-found errors
// so use cases never see driver sentinels.
type ChatRepository interface {
	// Conversations and membership (read side is the membership authority's source of truth)
	CreateConversation(ctx context.Context, c chat.Conversation, members []chat.Member) (string, error)
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)
	GetMembership(ctx context.Context, conversationID string, userID string) (*chat.Member, error)
	ListMemberIDs(ctx context.Context, conversationID string) ([]string, error)

	// User lookup (read-only collaborator)
	FindUser(ctx context.Context, userID string) (*chat.User, error)

	// Messages. SaveMessage atomically persists the message, links the given
	// attachments and creates SENT status rows for every recipient.
	SaveMessage(ctx context.Context, m chat.Message, attachmentIDs []string, recipientIDs []string) (string, error)
	GetMessage(ctx context.Context, messageID string) (*chat.Message, error)
	GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.MessageView, error)

	// SoftDeleteMessage tombstones the message and cascades the tombstone to
	// its attachment links in one transaction.
	SoftDeleteMessage(ctx context.Context, messageID string) error

	// Attachment metadata for hydrating outbound payloads.
	ResolveAttachments(ctx context.Context, attachmentIDs []string) ([]chat.Attachment, error)

	// Per-recipient delivery state. UpdateStatus enforces the monotonic
	// ordering invariant in the store: a lower-or-equal status is a no-op and
	// transition timestamps are only ever set once. It is strictly
	// update-only: rows exist from send time, and a caller without a row
	// (the sender, or a member added later) must not be granted one, or the
	// read-by-all denominator would grow past the send-time recipient set.
	// Returns whether a row was matched.
	UpdateStatus(ctx context.Context, messageID string, receiverID string, status chat.DeliveryStatus, at time.Time) (bool, error)
	ListStatuses(ctx context.Context, messageID string) ([]chat.MessageStatus, error)

	// MarkReadByAllIfComplete atomically flips read_by_all when no recipient
	// row remains below READ. It returns true for exactly one caller per
	// message; concurrent racers observe false.
	MarkReadByAllIfComplete(ctx context.Context, messageID string) (bool, error)
}
