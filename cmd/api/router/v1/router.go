package v1

import (
	"github.com/bk-ghauri/subscription-based-chat-app/internal/auth"
	cacheport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/port"
	qport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/queue/port"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/realtime"
	httpHandler "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/presentation/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, client qport.Client, router *realtime.Router, presence *realtime.PresenceRegistry, tokens *auth.TokenService, cache cacheport.Cache) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, pool, client, router, presence, tokens, cache)
}
