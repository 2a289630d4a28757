package controller

import (
	"context"
	"net/http"
	"time"

	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
)

// ListConversationSummariesController serves the viewer's chat list
type ListConversationSummariesController struct {
	UC      *usecase.ListConversationSummariesUseCase
	Timeout time.Duration
}

func NewListConversationSummariesController(uc *usecase.ListConversationSummariesUseCase, timeout time.Duration) *ListConversationSummariesController {
	return &ListConversationSummariesController{UC: uc, Timeout: timeout}
}

func (h *ListConversationSummariesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.ListConversationSummariesInput{
			ViewerID: middleware.Viewer(c),
			Query:    c.Query("q"),
		})
		if err != nil {
			writeError(c, err)
			return
		}

		items := make([]summaryResponse, 0, len(out.Summaries))
		for _, s := range out.Summaries {
			items = append(items, toSummaryResponse(s))
		}
		c.JSON(http.StatusOK, gin.H{
			"conversations": items,
			"skipped":       out.Skipped,
		})
	}
}
