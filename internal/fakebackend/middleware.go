package fakebackend

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authMiddleware resolves "Token <key>" or "Bearer <key>" to a user id.
func (b *Backend) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !(strings.EqualFold(parts[0], "token") || strings.EqualFold(parts[0], "bearer")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid authorization header"})
			return
		}

		b.mu.Lock()
		userID, ok := b.tokens[parts[1]]
		b.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// countMiddleware records the call and injects scripted failures.
func (b *Backend) countMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()

		b.mu.Lock()
		b.calls[route]++
		fail := b.failures[route] > 0
		if fail {
			b.failures[route]--
		}
		b.mu.Unlock()

		if fail {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "scripted failure"})
			return
		}
		c.Next()
	}
}
