package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"birdconnect/internal/infrastructure/realtime"
	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/task"
	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Outbound message frames come from the MessageSent fan-out, not from this handler.
type ChatSocketController struct {
	router          *realtime.Router
	sendMessageUC   *usecase.SendMessageUseCase
	joinRoomUC      *usecase.JoinConversationUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(
	router *realtime.Router,
	send *usecase.SendMessageUseCase,
	join *usecase.JoinConversationUseCase,
	timeout time.Duration,
) *ChatSocketController {
	return &ChatSocketController{
		router:          router,
		sendMessageUC:   send,
		joinRoomUC:      join,
		inflightTimeout: timeout,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy belongs to the fronting proxy.
		return true
	},
}

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Content        string  `json:"content,omitempty"`
	DedupeKey      *string `json:"dedupe_key,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type sentFrame struct {
	Type    string              `json:"type"`
	Message task.MessagePayload `json:"message"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
// The user comes from X-User-ID, or from ?user_id= for browsers that cannot set headers.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(middleware.ViewerHeader)
		if raw == "" {
			raw = c.Query("user_id")
		}
		userID, err := chat.CanonicalID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required", "code": "invalid_input"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			observability.LoggerFromContext(c.Request.Context()).Warn("websocket upgrade", "error", err)
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		conn.PrepareRead(defaultReadTimeout)
		_ = conn.SendJSON(ackFrame{Type: "connected"})

		for {
			var frame inboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if errors.Is(err, realtime.ErrMalformedFrame) {
					ctl.replyError(conn, "bad_request", "invalid payload")
					continue
				}
				return
			}

			switch frame.Type {
			case "join":
				ctl.handleJoin(c.Request.Context(), conn, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c.Request.Context(), conn, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleJoin(parent context.Context, conn *realtime.Connection, frame inboundFrame) {
	// Rooms are keyed by the canonical id the fan-out broadcasts to.
	conversationID, err := chat.CanonicalID(frame.ConversationID)
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()

	err = ctl.joinRoomUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: conversationID,
		UserID:         conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ctl.router.Join(conversationID, conn)
	_ = conn.SendJSON(ackFrame{Type: "joined", ConversationID: conversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	conversationID, err := chat.CanonicalID(frame.ConversationID)
	if err != nil {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}
	ctl.router.Leave(conversationID, conn)
	_ = conn.SendJSON(ackFrame{Type: "left", ConversationID: conversationID})
}

func (ctl *ChatSocketController) handleMessage(parent context.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		Content:        frame.Content,
		DedupeKey:      frame.DedupeKey,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	_ = conn.SendJSON(sentFrame{Type: "sent", Message: task.ToMessagePayload(*msg)})
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	_, code := statusFor(err)
	msg := err.Error()
	if code == "unavailable" || code == "internal_error" {
		msg = "unexpected persistence error"
	}
	ctl.replyError(conn, code, msg)
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	_ = conn.SendJSON(errorFrame{Type: "error", Code: code, Error: message})
}
