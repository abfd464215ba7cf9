package middleware

import (
	"context"
	"strings"

	"broadcast/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey  = "user_id"
	ProfileKey = "profile"
	UserHeader = "X-User-Id"
)

// ProfileResolver looks up display profiles by user id.
type ProfileResolver interface {
	Resolve(ctx context.Context, ids []string) map[string]models.Author
}

// LoadUser reads the caller's id from the X-User-Id header and, when set,
// stores it and the caller's cached profile in the context. Identity is
// verified upstream; the id is trusted as given.
func LoadUser(profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID != "" {
			c.Set(UserIDKey, userID)
			if profiles != nil {
				if p, ok := profiles.Resolve(c.Request.Context(), []string{userID})[userID]; ok {
					c.Set(ProfileKey, p)
				}
			}
		}
		c.Next()
	}
}

// CurrentProfile returns the caller's cached profile set by LoadUser.
func CurrentProfile(c *gin.Context) (models.Author, bool) {
	v, ok := c.Get(ProfileKey)
	if !ok {
		return models.Author{}, false
	}
	p, ok := v.(models.Author)
	return p, ok
}

// CurrentUserID returns the id set by LoadUser, or "".
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
