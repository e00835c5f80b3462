package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"
)

// RemoveMessageInput identifies the message to tombstone. ConversationID is
// cross-checked so a client cannot remove a message through the wrong room.
type RemoveMessageInput struct {
	MessageID      string
	ConversationID string
}

// RemoveMessageUseCase soft-deletes a message and cascades the tombstone to
// its attachment links in one atomic repository call.
type RemoveMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewRemoveMessageUseCase(repo repository.ChatRepository) *RemoveMessageUseCase {
	return &RemoveMessageUseCase{Repo: repo}
}

func (uc *RemoveMessageUseCase) Execute(ctx context.Context, in RemoveMessageInput) error {
	if in.MessageID == "" || in.ConversationID == "" {
		return fmt.Errorf("message_id and conversation_id are required")
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg.ConversationID != in.ConversationID {
		return chat.ErrMessageNotFound
	}

	if err := uc.Repo.SoftDeleteMessage(ctx, in.MessageID); err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
