package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"broadcast/internal/apperr"
	"broadcast/internal/middleware"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RenderError writes err as {status, message} with the status of its kind.
// Infrastructure errors are logged with their cause and shown without it.
func RenderError(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
	}
	c.AbortWithStatusJSON(code, gin.H{
		"status":  code,
		"message": apperr.PublicMessage(err),
	})
}

// bind decodes the JSON body into obj. An empty body leaves obj untouched.
func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		RenderError(c, apperr.Validation("Invalid request body"))
		return false
	}
	return true
}

// requester is the acting user: the X-User-Id header when present,
// otherwise the userId from the body.
func requester(c *gin.Context, bodyUserID string) string {
	if id := middleware.CurrentUserID(c); id != "" {
		return id
	}
	return strings.TrimSpace(bodyUserID)
}

// displayName is the name sent in the body, falling back to the cached
// profile of the header identity.
func displayName(c *gin.Context, given string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	if p, ok := middleware.CurrentProfile(c); ok {
		return p.NickName
	}
	return ""
}

type userBody struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
