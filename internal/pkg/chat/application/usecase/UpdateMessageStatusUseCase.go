package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"
)

// UpdateMessageStatusInput records one recipient acknowledging delivery or
// read. ConversationID, when set, is cross-checked against the message before
// anything is written, so a frame aimed at the wrong room has no effect.
type UpdateMessageStatusInput struct {
	MessageID      string
	ConversationID string
	ReceiverID     string
	Status         chat.DeliveryStatus
}

// UpdateMessageStatusResult tells the gateway what to broadcast.
// Applied is false when the event was absorbed without touching state (the
// sender acking their own message, or a member with no send-time status row);
// nothing should be broadcast then. ReadByAll is true only for the single
// call that completed the aggregate.
type UpdateMessageStatusResult struct {
	Applied      bool
	ReadByAll    bool
	Conversation chat.Conversation
}

// BroadcastReadByAll reports whether the aggregate event should be fanned out.
// Suppressed for DMs: the single per-recipient update already conveys it.
func (r *UpdateMessageStatusResult) BroadcastReadByAll() bool {
	return r.ReadByAll && r.Conversation.IsGroup()
}

// UpdateMessageStatusUseCase drives the per-recipient delivery state machine.
//
// The status is monotonically non-decreasing (SENT < DELIVERED < READ); a
// stale lower-status event is absorbed by the repository update. Only
// send-time recipients hold status rows, and events from anyone else
// (including the sender) are no-ops, so the read-by-all denominator never
// grows after send. After a READ transition the repository's compare-and-set
// decides whether this caller is the one that completed "read by all";
// concurrent racers for the last outstanding recipient see false.
type UpdateMessageStatusUseCase struct {
	Repo repository.ChatRepository
}

func NewUpdateMessageStatusUseCase(repo repository.ChatRepository) *UpdateMessageStatusUseCase {
	return &UpdateMessageStatusUseCase{Repo: repo}
}

func (uc *UpdateMessageStatusUseCase) Execute(ctx context.Context, in UpdateMessageStatusInput) (*UpdateMessageStatusResult, error) {
	if in.MessageID == "" || in.ReceiverID == "" {
		return nil, fmt.Errorf("message_id and receiver_id are required")
	}
	if !in.Status.Valid() {
		return nil, chat.ErrInvalidStatus
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if in.ConversationID != "" && msg.ConversationID != in.ConversationID {
		return nil, chat.ErrMessageNotFound
	}

	conv, err := uc.Repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result := &UpdateMessageStatusResult{Conversation: *conv}
	if in.ReceiverID == msg.SenderID {
		// Senders are not recipients of their own message.
		return result, nil
	}

	applied, err := uc.Repo.UpdateStatus(ctx, in.MessageID, in.ReceiverID, in.Status, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	result.Applied = applied

	if applied && in.Status == chat.StatusRead {
		flipped, err := uc.Repo.MarkReadByAllIfComplete(ctx, in.MessageID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		result.ReadByAll = flipped
	}
	return result, nil
}
