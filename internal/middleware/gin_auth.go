package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth rejects requests without a live session and exposes
// the user ID to downstream handlers via both gin and request context.
func GinRequireAuth(m *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Set("userID", sess.UserID)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), userIDKey, sess.UserID),
		)

		c.Next()
	}
}
