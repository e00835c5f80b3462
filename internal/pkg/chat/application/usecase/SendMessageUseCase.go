package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Body           *string
	AttachmentIDs  []string
}

// SendMessageUseCase persists a new message and returns the fully-hydrated
// view the gateway broadcasts to the room.
//
// Recipients are the conversation members minus the sender, captured at send
// time: SENT status rows are created for them in the same transaction as the
// message. A member who joins later gets no row for historical messages.
type SendMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewSendMessageUseCase(repo repository.ChatRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.MessageView, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, chat.ErrInvalidMessage
	}

	if _, err := uc.Repo.GetConversation(ctx, in.ConversationID); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	sender, err := uc.Repo.FindUser(ctx, in.SenderID)
	if err != nil {
		if errors.Is(err, chat.ErrUserNotFound) {
			return nil, chat.ErrSenderNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	attachmentIDs := dedupe(in.AttachmentIDs)

	var attachments []chat.Attachment
	if len(attachmentIDs) > 0 {
		attachments, err = uc.Repo.ResolveAttachments(ctx, attachmentIDs)
		if err != nil {
			if errors.Is(err, chat.ErrAttachmentNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
	}, len(attachments) > 0)
	if err != nil {
		return nil, err
	}

	memberIDs, err := uc.Repo.ListMemberIDs(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	recipients := make([]string, 0, len(memberIDs))
	for _, uid := range memberIDs {
		if uid != in.SenderID {
			recipients = append(recipients, uid)
		}
	}

	id, err := uc.Repo.SaveMessage(ctx, *msg, attachmentIDs, recipients)
	if err != nil {
		if errors.Is(err, chat.ErrAttachmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	return hydrate(*msg, *sender, attachments, recipients), nil
}

func hydrate(m chat.Message, sender chat.User, attachments []chat.Attachment, recipients []string) *chat.MessageView {
	view := &chat.MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender: chat.Sender{
			ID:          sender.ID,
			DisplayName: sender.DisplayName,
			AvatarURL:   sender.AvatarURL,
		},
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadByAll:   m.ReadByAll,
		Attachments: make([]chat.AttachmentView, 0, len(attachments)),
		Statuses:    make([]chat.MessageStatus, 0, len(recipients)),
	}
	for _, a := range attachments {
		view.Attachments = append(view.Attachments, chat.AttachmentView{ID: a.ID, FileURL: a.FileURL})
	}
	for _, uid := range recipients {
		view.Statuses = append(view.Statuses, chat.MessageStatus{
			MessageID:  m.ID,
			ReceiverID: uid,
			Status:     chat.StatusSent,
		})
	}
	return view
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
