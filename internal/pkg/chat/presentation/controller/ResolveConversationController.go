package controller

import (
	"context"
	"net/http"
	"time"

	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
)

// ResolveConversationController opens (or reopens) the direct chat with another user
// One controller per endpoint
type ResolveConversationController struct {
	UC      *usecase.ResolveConversationUseCase
	Timeout time.Duration
}

func NewResolveConversationController(uc *usecase.ResolveConversationUseCase, timeout time.Duration) *ResolveConversationController {
	return &ResolveConversationController{UC: uc, Timeout: timeout}
}

type resolveConversationRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required,notblank"`
}

// Handle answers 201 when the conversation was created by this call and 200 otherwise.
func (h *ResolveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		viewer := middleware.Viewer(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.ResolveConversationInput{ViewerID: viewer, TargetUserID: req.TargetUserID})
		if err != nil {
			writeError(c, err)
			return
		}

		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"conversation": toConversationResponse(out.Conversation, viewer),
			"created":      out.Created,
		})
	}
}
