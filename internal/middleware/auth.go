package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/auth"
)

const subjectContextKey = "tokenSubject"

func SubjectFromContext(c *gin.Context) (string, bool) {
	subject, ok := c.Get(subjectContextKey)
	if !ok {
		return "", false
	}
	value, ok := subject.(string)
	return value, ok && value != ""
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token", "kind": "invalid_credential"})
			return
		}

		claims, err := auth.VerifyAdmin(token, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token", "kind": "invalid_credential"})
			return
		}

		c.Set(subjectContextKey, claims.Subject)
		c.Next()
	}
}
