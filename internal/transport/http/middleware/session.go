package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ai-teacher/internal/pkg/jwtutil"
	"ai-teacher/internal/transport/http/response"
)

const ContextUserIDKey = "user_id"

type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// UserSession identifies the caller by a signed cookie. Requests without a
// valid cookie get a fresh user id and a new cookie.
func UserSession(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if raw, err := c.Cookie(cfg.CookieName); err == nil && raw != "" {
			if claims, err := jwtutil.ParseToken(cfg.Secret, raw); err == nil {
				userID = claims.UserID
			}
		}
		if userID == "" {
			userID = jwtutil.NewUserID()
		}

		// Reissued on every request for a sliding expiry.
		token, err := jwtutil.GenerateToken(cfg.Secret, userID, cfg.TTL)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "issue session failed")
			c.Abort()
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, token, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id placed by UserSession.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
