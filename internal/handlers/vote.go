package handlers

import (
	"github.com/gin-gonic/gin"
)

type VoteHandler struct{}

func NewVoteHandler() *VoteHandler {
	return &VoteHandler{}
}

// Votes are applied by the user store; failures arrive on the stream as
// postError.

func (h *VoteHandler) UpvotePost(c *gin.Context) {
	s := current(c)
	s.Dispatcher.UpvotePost(s.UID(), c.Param("id"))
	Accepted(c)
}

func (h *VoteHandler) DownvotePost(c *gin.Context) {
	s := current(c)
	s.Dispatcher.DownvotePost(s.UID(), c.Param("id"))
	Accepted(c)
}

func (h *VoteHandler) UpvoteComment(c *gin.Context) {
	s := current(c)
	s.Dispatcher.UpvoteComment(s.UID(), c.Param("id"))
	Accepted(c)
}

func (h *VoteHandler) DownvoteComment(c *gin.Context) {
	s := current(c)
	s.Dispatcher.DownvoteComment(s.UID(), c.Param("id"))
	Accepted(c)
}
