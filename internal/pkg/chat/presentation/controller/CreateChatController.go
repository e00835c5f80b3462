package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/usecase"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateChatController handles the chat creation endpoint
// One controller per endpoint

type CreateChatController struct {
	UC *usecase.CreateChatUseCase
}

func NewCreateChatController(pool *pgxpool.Pool) *CreateChatController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewCreateChatUseCase(repo)
	return &CreateChatController{UC: uc}
}

type createChatRequest struct {
	TenantID       string   `json:"tenant_id"`
	Type           string   `json:"type" binding:"required"`
	CreatorID      string   `json:"creator_id" binding:"required"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (h *CreateChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.CreateChatInput{
			TenantID:  req.TenantID,
			Type:      chat.ConversationType(req.Type),
			CreatorID: req.CreatorID,
			MemberIDs: req.ParticipantIDs,
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		conv, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         conv.ID,
			"type":       conv.Type,
			"created_at": conv.CreatedAt,
			"tenant_id":  conv.TenantID,
		})
	}
}
