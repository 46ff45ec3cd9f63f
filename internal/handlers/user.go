package handlers

import (
	"net/http"

	"newsboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me returns the logged in user with a gravatar url.
func (h *UserHandler) Me(c *gin.Context) {
	state := current(c).User.State()
	if state.Profile == nil {
		c.JSON(http.StatusOK, gin.H{"uid": state.UID, "profile": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uid":     state.UID,
		"profile": state.Profile,
		"avatar":  utils.GravatarURL(state.Profile.MD5Hash, 80),
	})
}

func (h *UserHandler) Listen(c *gin.Context) {
	current(c).Dispatcher.ListenToProfile(c.Param("uid"))
	Accepted(c)
}

func (h *UserHandler) Stop(c *gin.Context) {
	current(c).Dispatcher.StopListeningToProfile(c.Param("uid"))
	Accepted(c)
}

func (h *UserHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Profile.State())
}
