// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity. Authentication happens upstream
// (gateway or auth proxy), which forwards the user id in X-User-ID. Routes
// behind Identity() reject requests without it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the authenticated user id set by the upstream proxy.
	HeaderUserID = "X-User-ID"
	// userIDKey is the Gin context key holding the resolved user id.
	userIDKey = "userID"

	maxUserIDLen = 64
)

// Identity stores the X-User-ID value under "userID" in the Gin context and
// aborts with 401 when it is missing or longer than the owner column allows.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if uid == "" || len(uid) > maxUserIDLen {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid " + HeaderUserID,
			})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// UserID returns the identity resolved by Identity, or "" when absent.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
