package middleware

import (
	"dm-chat/auth"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// BearerToken extracts the credential from an Authorization header.
// Both the access middleware and the refresh endpoint parse headers
// through this one helper.
func BearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// Auth extracts and validates the bearer access token, then stores the
// authenticated user id on the request context for the handlers.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := BearerToken(c.GetHeader("Authorization"))
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}

		claims, err := tokens.Validate(token, auth.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// CurrentUserID reads the id the Auth middleware stored. Zero means
// the middleware did not run, which is a routing mistake.
func CurrentUserID(c *gin.Context) int64 {
	value, ok := c.Get(userIDKey)
	if !ok {
		return 0
	}
	id, _ := value.(int64)
	return id
}
