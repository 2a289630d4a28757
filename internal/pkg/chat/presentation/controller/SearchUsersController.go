package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"birdconnect/internal/pkg/chat/application/usecase"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
)

// SearchUsersController finds people to start a chat with
type SearchUsersController struct {
	UC      *usecase.SearchUsersUseCase
	Timeout time.Duration
}

func NewSearchUsersController(uc *usecase.SearchUsersUseCase, timeout time.Duration) *SearchUsersController {
	return &SearchUsersController{UC: uc, Timeout: timeout}
}

func (h *SearchUsersController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		users, err := h.UC.Execute(ctx, usecase.SearchUsersInput{
			ViewerID: middleware.Viewer(c),
			Query:    c.Query("q"),
			Limit:    limit,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]userResponse, 0, len(users))
		for _, u := range users {
			out = append(out, toUserResponse(u))
		}
		c.JSON(http.StatusOK, gin.H{"users": out})
	}
}
