package handlers

import (
	"context"
	"net/http"

	"newsboard/internal/actions"
	"newsboard/internal/models"
	"newsboard/internal/realtime"
	"newsboard/internal/services"
	"newsboard/internal/stores"
	"newsboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type StoryHandler struct {
	previewer *services.Previewer
}

func NewStoryHandler(previewer *services.Previewer) *StoryHandler {
	return &StoryHandler{previewer: previewer}
}

type createPostRequest struct {
	Title string `json:"title" binding:"max=300"`
	URL   string `json:"url" binding:"omitempty,url"`
	Body  string `json:"body" binding:"max=40000"`
}

type createCommentRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type sortRequest struct {
	Value string `json:"value" binding:"required"`
}

type overlayRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *StoryHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	// 只有链接没有标题时抓取页面标题
	if req.Title == "" && req.URL != "" {
		if preview, err := h.previewer.Preview(c.Request.Context(), req.URL); err == nil {
			req.Title = preview.Title
		}
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidRequest, "message": "title is required"})
		return
	}

	s := current(c)
	uid, name := author(s)
	id, err := s.Dispatcher.SubmitPost(chainContext(c), models.Post{
		Title:    req.Title,
		URL:      req.URL,
		Body:     req.Body,
		Author:   name,
		AuthorID: uid,
	})
	if err != nil {
		IntentFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Preview 返回链接的标题和摘要
func (h *StoryHandler) Preview(c *gin.Context) {
	preview, err := h.previewer.Preview(c.Request.Context(), c.Query("url"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "PREVIEW_FAILED", "message": msg(err)})
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ownerOf returns the authorId of a post or comment, "" when it is gone.
func ownerOf(ctx context.Context, db actions.Database, ref realtime.Ref) (string, error) {
	snap, err := db.Get(ctx, ref.Child("authorId").Query())
	if err != nil || !snap.Exists() {
		return "", err
	}
	var id string
	err = snap.Val(&id)
	return id, err
}

func (h *StoryHandler) Delete(c *gin.Context) {
	s := current(c)
	ctx := chainContext(c)
	postID := c.Param("id")

	owner, err := ownerOf(ctx, s.Client, actions.PostsRef.Child(postID))
	if err != nil {
		IntentFailed(c, err)
		return
	}
	if owner != "" && owner != s.UID() {
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN"})
		return
	}

	if err := s.Dispatcher.DeletePost(ctx, postID); err != nil {
		IntentFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}

	s := current(c)
	ctx := chainContext(c)
	postID := c.Param("id")

	// 通过帖子 ID 查找标题
	snap, err := s.Client.Get(ctx, actions.PostsRef.Child(postID).Child("title").Query())
	if err == nil && !snap.Exists() {
		err = &realtime.Error{Code: realtime.CodeNotFound, Op: "addComment"}
	}
	if err != nil {
		s.Dispatcher.PostError(realtime.Code(err))
		IntentFailed(c, err)
		return
	}
	var title string
	_ = snap.Val(&title)

	uid, name := author(s)
	id, err := s.Dispatcher.AddComment(ctx, models.Comment{
		PostID:    postID,
		PostTitle: title,
		Body:      req.Body,
		Author:    name,
		AuthorID:  uid,
	})
	if err != nil {
		IntentFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *StoryHandler) DeleteComment(c *gin.Context) {
	s := current(c)
	commentID := c.Param("id")
	postID := c.Query("postId")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidRequest, "message": "postId is required"})
		return
	}

	ctx := chainContext(c)
	owner, err := ownerOf(ctx, s.Client, actions.CommentsRef.Child(commentID))
	if err != nil {
		IntentFailed(c, err)
		return
	}
	if owner != "" && owner != s.UID() {
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN"})
		return
	}

	if err := s.Dispatcher.DeleteComment(ctx, commentID, postID); err != nil {
		IntentFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Listen 订阅帖子列表的某一页
func (h *StoryHandler) Listen(c *gin.Context) {
	var req pageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err)
			return
		}
	}
	if q := c.Query("page"); q != "" {
		req.Page = utils.ParsePage(q)
	}
	if req.Page > stores.MaxPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidRequest, "message": "page out of range"})
		return
	}
	current(c).Dispatcher.ListenToPosts(max(req.Page, 1))
	Accepted(c)
}

func (h *StoryHandler) Stop(c *gin.Context) {
	current(c).Dispatcher.StopListeningToPosts()
	Accepted(c)
}

func (h *StoryHandler) Sort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	current(c).Dispatcher.SetSortBy(req.Value)
	Accepted(c)
}

func (h *StoryHandler) State(c *gin.Context) {
	state, err := current(c).Posts.State()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": realtime.CodeNetworkError})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *StoryHandler) ListenPost(c *gin.Context) {
	current(c).Dispatcher.ListenToPost(c.Param("id"))
	Accepted(c)
}

func (h *StoryHandler) StopPost(c *gin.Context) {
	current(c).Dispatcher.StopListeningToPost(c.Param("id"))
	Accepted(c)
}

func (h *StoryHandler) PostState(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Post.State())
}

func (h *StoryHandler) Overlay(c *gin.Context) {
	var req overlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	current(c).Dispatcher.ShowOverlay(req.Kind)
	Accepted(c)
}
