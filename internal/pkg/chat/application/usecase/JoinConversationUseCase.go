package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	cacheport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/port"
	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"
)

// denialTTL bounds how long a cached denial may outlive a membership grant.
const denialTTL = 10 * time.Second

// JoinConversationInput validates a request to attach a user session to a conversation room.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase is the membership authority: it answers whether the
// user may subscribe to the conversation's room. Pure read, no side effects.
//
// Denials may be cached for a short TTL; allows are never cached, so a stale
// cache can never grant access the store would deny.
type JoinConversationUseCase struct {
	Repo  repository.ChatRepository
	Cache cacheport.Cache // optional; nil disables denial caching
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func NewJoinConversationUseCaseWithCache(repo repository.ChatRepository, cache cacheport.Cache) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo, Cache: cache}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("conversation_id and user_id are required")
	}

	key := denialKey(in.ConversationID, in.UserID)
	if uc.Cache != nil {
		if cached, err := uc.Cache.Get(ctx, key); err == nil {
			switch cached {
			case "conversation":
				return chat.ErrConversationNotFound
			case "membership":
				return chat.ErrNotMember
			}
		}
	}

	if _, err := uc.Repo.GetConversation(ctx, in.ConversationID); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			uc.cacheDenial(ctx, key, "conversation")
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if _, err := uc.Repo.GetMembership(ctx, in.ConversationID, in.UserID); err != nil {
		if errors.Is(err, chat.ErrNotMember) {
			uc.cacheDenial(ctx, key, "membership")
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return nil
}

func (uc *JoinConversationUseCase) cacheDenial(ctx context.Context, key string, reason string) {
	if uc.Cache == nil {
		return
	}
	// Best effort; a cache failure must never affect the verdict.
	_ = uc.Cache.Set(ctx, key, reason, denialTTL)
}

func denialKey(conversationID string, userID string) string {
	return "chat:join:deny:" + conversationID + ":" + userID
}
