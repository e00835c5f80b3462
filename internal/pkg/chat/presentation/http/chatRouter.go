package http

import (
	"github.com/bk-ghauri/subscription-based-chat-app/internal/auth"
	cacheport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/port"
	qport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/queue/port"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/realtime"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/presentation/controller"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, client qport.Client, router *realtime.Router, presence *realtime.PresenceRegistry, tokens *auth.TokenService, cache cacheport.Cache) {
	createCtl := controller.NewCreateChatController(pool)
	sendMsgCtl := controller.NewSendMessageController(client)
	getMsgCtl := controller.NewGetMessageController(pool)
	participantsCtl := controller.NewGetParticipantsController(pool)
	socketCtl := controller.NewChatSocketController(pool, router, presence, tokens, cache)

	// POST /api/v1/chat -> create a chat
	g.POST("/chat", createCtl.Handle())

	// POST /api/v1/chat/:chatId/messages -> enqueue a message into a chat
	g.POST("/chat/:chatId/messages", sendMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/messages -> fetch messages by chat id
	g.GET("/chat/:chatId/messages", getMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/participants -> list member user ids
	g.GET("/chat/:chatId/participants", participantsCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())
}
