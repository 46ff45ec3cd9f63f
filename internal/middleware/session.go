package middleware

import (
	"log/slog"
	"net/http"

	"newsboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionKey   = "session"
	sessionIDKey = "sid"

	CodeAuthRequired = "AUTH_REQUIRED"
)

// LoadSession resolves the cookie session id to a live session, starting a
// new one when the id is unknown or its session was evicted.
func LoadSession(reg *services.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := sessions.Default(c)
		id, _ := cookie.Get(sessionIDKey).(string)

		s := reg.GetOrCreate(id)
		if s.ID != id {
			cookie.Set(sessionIDKey, s.ID)
			if err := cookie.Save(); err != nil {
				slog.Error("Failed to save session cookie", "error", err)
			}
		}
		c.Set(SessionKey, s)
		c.Next()
	}
}

// Current returns the session LoadSession put on the context.
func Current(c *gin.Context) *services.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*services.Session)
	return s
}

// AuthRequired rejects requests from sessions that are not logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := Current(c)
		if s == nil || s.UID() == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeAuthRequired})
			return
		}
		c.Next()
	}
}
