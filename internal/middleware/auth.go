package middleware

import (
	"net/http"
	"strings"

	"cropwise-backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			c.Abort()
			return
		}

		// Expect "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		token := parts[1]
		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("is_expert", claims.IsExpert)

		c.Next()
	}
}

// ExpertMiddleware restricts a route to verified agronomy experts.
func ExpertMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isExpert, exists := c.Get("is_expert")
		if !exists || !isExpert.(bool) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Expert access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
