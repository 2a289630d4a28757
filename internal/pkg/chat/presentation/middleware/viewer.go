package middleware

import (
	"net/http"

	chat "birdconnect/internal/pkg/chat/application/domain"

	"github.com/gin-gonic/gin"
)

const (
	// ViewerHeader is set by the upstream identity layer to the authenticated user id.
	ViewerHeader = "X-User-ID"
	// ViewerKey is the gin context key holding the canonical viewer id.
	ViewerKey = "viewer_id"
)

// RequireViewer rejects requests without a well-formed viewer id.
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ViewerHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ViewerHeader + " header"})
			return
		}
		id, err := chat.CanonicalID(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Set(ViewerKey, id)
		c.Next()
	}
}

// Viewer returns the id stored by RequireViewer.
func Viewer(c *gin.Context) string {
	return c.GetString(ViewerKey)
}
