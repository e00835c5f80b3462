package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	qport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/queue/port"
	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/adapter"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SendMessageTaskType is the queue task name for sending a message within the chat domain.
const SendMessageTaskType = "chat:send_message"

// SendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type SendMessageTaskPayload struct {
	ConversationID string   `json:"conversationId"`
	SenderID       string   `json:"senderId"`
	Body           *string  `json:"body"`
	AttachmentIDs  []string `json:"attachmentIds"`
}

// RegisterSendMessageTask binds the task handler to the provided server.
// The handler will execute the SendMessageUseCase using the provided DB pool.
func RegisterSendMessageTask(srv qport.Server, pool *pgxpool.Pool) {
	srv.Register(SendMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return err
		}

		repo := repoAdapter.NewPgChatRepository(pool)
		uc := usecase.NewSendMessageUseCase(repo)

		in := usecase.SendMessageInput{
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			Body:           p.Body,
			AttachmentIDs:  p.AttachmentIDs,
		}

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if _, err := uc.Execute(ctx, in); err != nil {
			if errors.Is(err, usecase.ErrPersistence) {
				// transient infrastructure failure: let the adapter retry
				return err
			}
			switch {
			case errors.Is(err, chat.ErrConversationNotFound),
				errors.Is(err, chat.ErrSenderNotFound),
				errors.Is(err, chat.ErrAttachmentNotFound),
				errors.Is(err, chat.ErrEmptyMessage),
				errors.Is(err, chat.ErrInvalidMessage):
				// domain rejection: retrying cannot succeed
				return nil
			}
			return err
		}
		return nil
	})
}
