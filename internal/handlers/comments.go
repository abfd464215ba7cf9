package handlers

import (
	"net/http"

	"broadcast/internal/services"
	"broadcast/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	feed   *services.FeedService
	engage *services.EngagementService
}

func NewCommentHandler(feed *services.FeedService, engage *services.EngagementService) *CommentHandler {
	return &CommentHandler{feed: feed, engage: engage}
}

// List GET /comments/:id where id is the post id
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.feed.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) Create(c *gin.Context) {
	var in services.AddCommentInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)
	in.UserName = displayName(c, in.UserName)

	comment, err := h.engage.AddComment(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Like(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	comment, err := h.engage.ToggleCommentLike(c.Request.Context(), c.Param("id"), requester(c, body.UserID))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Reply(c *gin.Context) {
	var in services.AddReplyInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)
	in.UserName = displayName(c, in.UserName)

	comment, err := h.engage.AddReply(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// LikeReply POST /comments/:id/replies/:reply/like. The reply is given by
// id, or by its position for older clients; a position is resolved to an
// id once, before the toggle.
func (h *CommentHandler) LikeReply(c *gin.Context) {
	rid := c.Param("reply")
	if index, ok := utils.ParseIndex(rid); ok {
		var err error
		if rid, err = h.engage.ReplyIDAt(c.Request.Context(), c.Param("id"), index); err != nil {
			RenderError(c, err)
			return
		}
	}
	h.likeReply(c, rid)
}

func (h *CommentHandler) likeReply(c *gin.Context, rid string) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	comment, err := h.engage.ToggleReplyLike(c.Request.Context(), c.Param("id"), rid, requester(c, body.UserID))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	if err := h.engage.DeleteComment(c.Request.Context(), c.Param("id"), requester(c, body.UserID)); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
