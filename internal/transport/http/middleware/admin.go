package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"ai-teacher/internal/transport/http/response"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey requires the X-Admin-Key header to match the bcrypt hash. An empty
// hash disables the check.
func AdminKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.Next()
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid admin key")
			c.Abort()
			return
		}
		c.Next()
	}
}
