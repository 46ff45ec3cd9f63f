package handlers

import (
	"net/http"

	"newsboard/internal/realtime"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 用户名校验交给 dispatcher，空用户名要走 NO_USERNAME
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	s := current(c)
	creds := realtime.Credentials{Email: req.Email, Password: req.Password}
	if err := s.Dispatcher.Register(chainContext(c), req.Username, creds); err != nil {
		IntentFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": s.UID()})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	s := current(c)
	creds := realtime.Credentials{Email: req.Email, Password: req.Password}
	if err := s.Dispatcher.Login(chainContext(c), creds, ""); err != nil {
		IntentFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": s.UID()})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	current(c).Dispatcher.Logout()
	c.Status(http.StatusNoContent)
}
