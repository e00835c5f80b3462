package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/usecase"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetParticipantsController lists member user ids of a chat (one controller per endpoint)
type GetParticipantsController struct {
	UC *usecase.ListParticipantsUseCase
}

func NewGetParticipantsController(pool *pgxpool.Pool) *GetParticipantsController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewListParticipantsUseCase(repo)
	return &GetParticipantsController{UC: uc}
}

func (h *GetParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		ids, err := h.UC.Execute(ctx, usecase.ListParticipantsInput{ConversationID: chatID})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"participants": ids,
			"count":        len(ids),
		})
	}
}
