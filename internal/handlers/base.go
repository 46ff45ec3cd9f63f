package handlers

import (
	"context"
	"net/http"

	"newsboard/internal/middleware"
	"newsboard/internal/realtime"
	"newsboard/internal/services"

	"github.com/gin-gonic/gin"
)

const CodeInvalidRequest = "INVALID_REQUEST"

func current(c *gin.Context) *services.Session {
	return middleware.Current(c)
}

// author 当前用户的显示名，没有资料时用 uid
func author(s *services.Session) (uid, name string) {
	uid = s.UID()
	if st := s.User.State(); st.UID == uid && st.Profile != nil && st.Profile.Username != "" {
		return uid, st.Profile.Username
	}
	return uid, uid
}

// chainContext 客户端断开后，已开始的写入链仍要跑完
func chainContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// IntentFailed answers a request whose intent ended in an error intent. The
// error intent itself is already on the session stream.
func IntentFailed(c *gin.Context, err error) {
	c.JSON(http.StatusAccepted, gin.H{"error": realtime.Code(err)})
}

// BadRequest answers requests that never reached the dispatcher.
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidRequest, "message": msg(err)})
}

// Accepted answers fire-and-forget intents.
func Accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func msg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
