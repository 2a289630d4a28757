package controller

import (
	"context"
	"net/http"
	"time"

	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"
	userport "birdconnect/internal/repository/port"

	"github.com/gin-gonic/gin"
)

// ListMessagesController returns the whole message log of a chat with sender profiles attached
type ListMessagesController struct {
	UC      *usecase.ListMessagesUseCase
	Users   userport.UserRepository
	Timeout time.Duration
}

func NewListMessagesController(uc *usecase.ListMessagesUseCase, users userport.UserRepository, timeout time.Duration) *ListMessagesController {
	return &ListMessagesController{UC: uc, Users: users, Timeout: timeout}
}

func (h *ListMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.ListMessagesInput{
			ConversationID: c.Param("chatId"),
			ViewerID:       middleware.Viewer(c),
		})
		if err != nil {
			writeError(c, err)
			return
		}

		senders := h.lookupSenders(ctx, msgs)
		out := make([]messageResponse, 0, len(msgs))
		for _, m := range msgs {
			r := toMessageResponse(m)
			if u, ok := senders[m.SenderID]; ok {
				r.SenderName = u.DisplayName
				r.SenderAvatar = u.AvatarRef
			}
			out = append(out, r)
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": out,
			"count":    len(out),
		})
	}
}

// lookupSenders resolves each distinct sender once. Missing profiles are left out.
func (h *ListMessagesController) lookupSenders(ctx context.Context, msgs []chat.Message) map[string]chat.User {
	senders := make(map[string]chat.User, 2)
	for _, m := range msgs {
		if _, seen := senders[m.SenderID]; seen {
			continue
		}
		u, err := h.Users.FindByID(ctx, m.SenderID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("sender profile lookup", "sender_id", m.SenderID, "error", err)
			u = chat.User{ID: m.SenderID}
		}
		senders[m.SenderID] = u
	}
	return senders
}
