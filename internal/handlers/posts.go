package handlers

import (
	"net/http"

	"broadcast/internal/geo"
	"broadcast/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	feed   *services.FeedService
	engage *services.EngagementService
}

func NewPostHandler(feed *services.FeedService, engage *services.EngagementService) *PostHandler {
	return &PostHandler{feed: feed, engage: engage}
}

// List GET /posts?levelType=&levelValue=
func (h *PostHandler) List(c *gin.Context) {
	scope := geo.NewScope(c.Query("levelType"), c.Query("levelValue"))
	posts, err := h.feed.ListPosts(c.Request.Context(), scope)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.feed.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	var in services.CreatePostInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)
	in.UserName = displayName(c, in.UserName)

	post, err := h.engage.CreatePost(c.Request.Context(), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var in services.UpdatePostInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)

	post, err := h.engage.UpdatePost(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	if err := h.engage.DeletePost(c.Request.Context(), c.Param("id"), requester(c, body.UserID)); err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *PostHandler) Like(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	res, err := h.engage.ToggleLike(c.Request.Context(), c.Param("id"), requester(c, body.UserID))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Recast toggles a plain recast, or appends a quote recast when quoteText
// is set. Responds with the original post.
func (h *PostHandler) Recast(c *gin.Context) {
	var in services.RecastInput
	if !bind(c, &in) {
		return
	}
	in.UserID = requester(c, in.UserID)
	in.Nickname = displayName(c, in.Nickname)

	post, err := h.engage.Recast(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Retweet is the older share endpoint that copies the post.
func (h *PostHandler) Retweet(c *gin.Context) {
	var body userBody
	if !bind(c, &body) {
		return
	}
	post, err := h.engage.Retweet(c.Request.Context(), c.Param("id"), requester(c, body.UserID), displayName(c, body.UserName))
	if err != nil {
		RenderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}
