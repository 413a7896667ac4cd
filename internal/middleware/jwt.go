package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/Abiya4/expense-tracker/internal/domain" // Role constants
	"github.com/Abiya4/expense-tracker/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// JWTAuthMiddleware validates JWT tokens and stores the caller's identity in
// the request context. Identity is resolved per request from the token, never
// from shared state.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseJWT(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Set("role", claims.Role)     // Store role in context
		c.Next()
	}
}

// UserOnlyMiddleware restricts a route to callers whose token carries the
// user role.
func UserOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role != domain.RoleUser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User access required"})
			return
		}
		c.Next()
	}
}
