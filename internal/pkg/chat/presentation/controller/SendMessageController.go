package controller

import (
	"context"
	"net/http"
	"time"

	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC      *usecase.SendMessageUseCase
	Timeout time.Duration
}

func NewSendMessageController(uc *usecase.SendMessageUseCase, timeout time.Duration) *SendMessageController {
	return &SendMessageController{UC: uc, Timeout: timeout}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Content   string  `json:"content" binding:"required,notblank"`
	DedupeKey *string `json:"dedupe_key"`
}

// Handle stores the message synchronously and returns it with its server timestamp.
func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: c.Param("chatId"),
			SenderID:       middleware.Viewer(c),
			Content:        req.Content,
			DedupeKey:      req.DedupeKey,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": toMessageResponse(*msg)})
	}
}
