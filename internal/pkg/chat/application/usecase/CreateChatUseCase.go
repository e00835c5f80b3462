package usecase

import (
	"context"
	"fmt"
	"time"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"
)

// CreateChatInput carries the required data to open a new conversation.
// The creator becomes ADMIN; everyone else joins as MEMBER.
type CreateChatInput struct {
	TenantID  string
	Type      chat.ConversationType
	CreatorID string
	MemberIDs []string
}

// CreateChatUseCase handles creation of a new conversation and its members
type CreateChatUseCase struct {
	Repo repository.ChatRepository
}

func NewCreateChatUseCase(repo repository.ChatRepository) *CreateChatUseCase {
	return &CreateChatUseCase{Repo: repo}
}

func (uc *CreateChatUseCase) Execute(ctx context.Context, in CreateChatInput) (*chat.Conversation, error) {
	if in.CreatorID == "" {
		return nil, fmt.Errorf("creator_id is required")
	}
	if in.Type != chat.ConversationTypeDM && in.Type != chat.ConversationTypeGroup {
		return nil, fmt.Errorf("type must be DM or GROUP")
	}

	now := time.Now().UTC()
	conv := chat.Conversation{TenantID: in.TenantID, Type: in.Type, CreatedAt: now}

	members := []chat.Member{{UserID: in.CreatorID, Role: chat.MemberRoleAdmin, JoinedAt: now}}
	for _, uid := range in.MemberIDs {
		if uid == "" || uid == in.CreatorID {
			continue
		}
		members = append(members, chat.Member{UserID: uid, Role: chat.MemberRoleMember, JoinedAt: now})
	}
	if in.Type == chat.ConversationTypeDM && len(members) != 2 {
		return nil, fmt.Errorf("a DM conversation requires exactly two members")
	}

	id, err := uc.Repo.CreateConversation(ctx, conv, members)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	conv.ID = id
	return &conv, nil
}
