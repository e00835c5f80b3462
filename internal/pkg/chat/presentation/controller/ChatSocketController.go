package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bk-ghauri/subscription-based-chat-app/internal/auth"
	cacheport "github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/cache/port"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/infrastructure/realtime"
	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"
	"github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/adapter"
	repository "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatSocketController is the realtime gateway: it authenticates websocket
// handshakes, tracks presence, gates room subscriptions through the
// membership authority and fans events out to room subscribers.
type ChatSocketController struct {
	router   *realtime.Router
	presence *realtime.PresenceRegistry
	tokens   *auth.TokenService

	repo            repository.ChatRepository
	sendMessageUC   *usecase.SendMessageUseCase
	joinRoomUC      *usecase.JoinConversationUseCase
	updateStatusUC  *usecase.UpdateMessageStatusUseCase
	removeMessageUC *usecase.RemoveMessageUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(pool *pgxpool.Pool, router *realtime.Router, presence *realtime.PresenceRegistry, tokens *auth.TokenService, cache cacheport.Cache) *ChatSocketController {
	repo := repoAdapter.NewPgChatRepository(pool)
	return &ChatSocketController{
		router:          router,
		presence:        presence,
		tokens:          tokens,
		repo:            repo,
		sendMessageUC:   usecase.NewSendMessageUseCase(repo),
		joinRoomUC:      usecase.NewJoinConversationUseCaseWithCache(repo, cache),
		updateStatusUC:  usecase.NewUpdateMessageStatusUseCase(repo),
		removeMessageUC: usecase.NewRemoveMessageUseCase(repo),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when deploying.
		return true
	},
}

type inboundFrame struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId,omitempty"`
	MessageID      string   `json:"messageId,omitempty"`
	Body           *string  `json:"body,omitempty"`
	AttachmentIDs  []string `json:"attachmentIds,omitempty"`
	IsTyping       bool     `json:"isTyping,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Status         string `json:"status,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

type receiveMessageFrame struct {
	Type    string           `json:"type"`
	Message chat.MessageView `json:"message"`
}

type typingFrame struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

type statusUpdateFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Status    string `json:"status"`
}

type messageEventFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

type presenceFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// PresenceBroadcasters builds the registry callbacks that announce presence
// transitions to every attached session.
func PresenceBroadcasters(router *realtime.Router) (onOnline func(string), onOffline func(string)) {
	emit := func(eventType string, userID string) {
		if payload, err := json.Marshal(presenceFrame{Type: eventType, UserID: userID}); err == nil {
			router.BroadcastAll(payload)
		}
	}
	onOnline = func(userID string) { emit("userOnline", userID) }
	onOffline = func(userID string) { emit("userOffline", userID) }
	return onOnline, onOffline
}

const defaultReadTimeout = 60 * time.Second

// Handle authenticates the handshake, upgrades to websocket and processes
// frames until the client disconnects.
//
// Authentication happens before the upgrade: a bad credential rejects the
// transport outright, with no presence side effects. Every frame handler runs
// on the connection's single read loop, so one socket's events are processed
// strictly in the order received.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		userID, err := ctl.tokens.VerifyAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or missing access token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
		user, err := ctl.repo.FindUser(ctx, userID)
		cancel()
		if err != nil {
			// Token is valid but the account is gone; treat as unauthorized.
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unknown user"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			log.Printf("websocket upgrade failed for user %s: %v", user.ID, err)
			return
		}

		conn := realtime.NewConnection(user.ID, ws)
		ctl.router.Attach(conn)
		ctl.presence.RegisterConnection(user.ID, conn.ID)
		defer func() {
			ctl.presence.UnregisterConnection(user.ID, conn.ID)
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, ackFrame{Type: "authenticated", Success: true})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					log.Printf("websocket read error for user %s: %v", user.ID, err)
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "", "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "joinRoom":
				ctl.handleJoin(c, conn, frame)
			case "leaveRoom":
				ctl.handleLeave(conn, frame)
			case "sendMessage":
				ctl.handleSendMessage(c, conn, *user, frame)
			case "typing":
				ctl.handleTyping(conn, *user, frame)
			case "messageDelivered":
				ctl.handleStatus(c, conn, *user, frame, chat.StatusDelivered)
			case "messageRead":
				ctl.handleStatus(c, conn, *user, frame, chat.StatusRead)
			case "removeMessage":
				ctl.handleRemoveMessage(c, conn, frame)
			default:
				ctl.replyError(conn, frame.Type, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "joinRoom", "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: frame.ConversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		// Denials go to the caller only; other members see nothing.
		ctl.handleUseCaseError(conn, "joinRoom", err)
		return
	}

	ctl.router.Join(frame.ConversationID, conn)
	ctl.reply(conn, ackFrame{Type: "joined", Success: true, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "leaveRoom", "bad_request", "conversationId is required")
		return
	}
	ctl.router.Leave(frame.ConversationID, conn)
	ctl.reply(conn, ackFrame{Type: "left", Success: true, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleSendMessage(c *gin.Context, conn *realtime.Connection, user chat.User, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "sendMessage", "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	view, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       user.ID,
		Body:           frame.Body,
		AttachmentIDs:  frame.AttachmentIDs,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, "sendMessage", err)
		return
	}

	payload, err := json.Marshal(receiveMessageFrame{Type: "receiveMessage", Message: *view})
	if err != nil {
		ctl.replyError(conn, "sendMessage", "internal_error", "failed to encode message")
		return
	}

	// Whole room, the sender's own other connections included.
	ctl.router.Broadcast(frame.ConversationID, payload, "")
	ctl.reply(conn, ackFrame{Type: "messageSent", Success: true, ConversationID: frame.ConversationID, MessageID: view.ID})
}

func (ctl *ChatSocketController) handleTyping(conn *realtime.Connection, user chat.User, frame inboundFrame) {
	if frame.ConversationID == "" {
		return
	}
	// Volatile, best-effort, no persistence; the emitting socket is excluded.
	payload, err := json.Marshal(typingFrame{
		Type:        "typing",
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		IsTyping:    frame.IsTyping,
	})
	if err != nil {
		return
	}
	ctl.router.Broadcast(frame.ConversationID, payload, conn.ID)
}

func (ctl *ChatSocketController) handleStatus(c *gin.Context, conn *realtime.Connection, user chat.User, frame inboundFrame, status chat.DeliveryStatus) {
	event := "messageDelivered"
	if status == chat.StatusRead {
		event = "messageRead"
	}
	if frame.MessageID == "" || frame.ConversationID == "" {
		ctl.replyError(conn, event, "bad_request", "messageId and conversationId are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	result, err := ctl.updateStatusUC.Execute(ctx, usecase.UpdateMessageStatusInput{
		MessageID:      frame.MessageID,
		ConversationID: frame.ConversationID,
		ReceiverID:     user.ID,
		Status:         status,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, event, err)
		return
	}

	// Absorbed events (sender acking their own message) change nothing and
	// broadcast nothing; the caller still gets an ack.
	if result.Applied {
		if payload, err := json.Marshal(statusUpdateFrame{
			Type:      "messageStatusUpdate",
			MessageID: frame.MessageID,
			UserID:    user.ID,
			Status:    status.String(),
		}); err == nil {
			ctl.router.Broadcast(frame.ConversationID, payload, "")
		}
	}

	if result.BroadcastReadByAll() {
		if payload, err := json.Marshal(messageEventFrame{Type: "messageReadByAll", MessageID: frame.MessageID}); err == nil {
			ctl.router.Broadcast(frame.ConversationID, payload, "")
		}
	}

	ctl.reply(conn, ackFrame{Type: "statusUpdated", Success: true, MessageID: frame.MessageID, Status: status.String()})
}

func (ctl *ChatSocketController) handleRemoveMessage(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if frame.MessageID == "" || frame.ConversationID == "" {
		ctl.replyError(conn, "removeMessage", "bad_request", "messageId and conversationId are required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.removeMessageUC.Execute(ctx, usecase.RemoveMessageInput{
		MessageID:      frame.MessageID,
		ConversationID: frame.ConversationID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, "removeMessage", err)
		return
	}

	if payload, err := json.Marshal(messageEventFrame{Type: "messageRemoved", MessageID: frame.MessageID}); err == nil {
		ctl.router.Broadcast(frame.ConversationID, payload, "")
	}
	ctl.reply(conn, ackFrame{Type: "messageRemoved", Success: true, MessageID: frame.MessageID})
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, event string, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		// Logged and reported to the caller; the connection stays open.
		log.Printf("persistence failure on %s: %v", event, err)
		ctl.replyError(conn, event, "internal_error", "unexpected persistence error")
	case errors.Is(err, chat.ErrNotMember):
		ctl.replyError(conn, event, "forbidden", "you are not a member of this conversation")
	case errors.Is(err, chat.ErrConversationNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrSenderNotFound),
		errors.Is(err, chat.ErrUserNotFound),
		errors.Is(err, chat.ErrAttachmentNotFound):
		ctl.replyError(conn, event, "not_found", err.Error())
	default:
		ctl.replyError(conn, event, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, ack ackFrame) {
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, event string, code string, message string) {
	frame := errorFrame{Type: "error", Success: false, Event: event, Code: code, Error: message}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
