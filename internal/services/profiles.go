package services

import (
	"context"
	"time"

	"broadcast/internal/models"
	"broadcast/internal/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const profileBatchSize = 500

// ProfileCache resolves author ids to display profiles. Lookups that miss
// the cache are batched into one query per chunk; anything that cannot be
// resolved, including on store failure, becomes the Anonymous profile.
type ProfileCache struct {
	db    *gorm.DB
	cache *utils.Cache[string, models.Author]
	ttl   time.Duration
}

func NewProfileCache(db *gorm.DB, size int, ttl time.Duration) (*ProfileCache, error) {
	c, err := utils.NewCache[string, models.Author](size)
	if err != nil {
		return nil, err
	}
	return &ProfileCache{db: db, cache: c, ttl: ttl}, nil
}

// Resolve returns a profile for every id in ids.
func (c *ProfileCache) Resolve(ctx context.Context, ids []string) map[string]models.Author {
	out := make(map[string]models.Author, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if a, ok := c.cache.Get(id); ok {
			out[id] = a
			continue
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += profileBatchSize {
		end := start + profileBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		var users []models.User
		err := c.db.WithContext(ctx).
			Select("clerk_id", "first_name", "last_name", "nick_name", "image").
			Where("clerk_id IN ?", missing[start:end]).
			Find(&users).Error
		if err != nil {
			log.WithField("ids", end-start).Warnf("author lookup failed, using placeholders: %v", err)
			break
		}
		for _, u := range users {
			a := models.AuthorOf(u)
			c.cache.Set(u.ClerkID, a, c.ttl)
			out[u.ClerkID] = a
		}
	}

	for _, id := range missing {
		if _, ok := out[id]; !ok {
			out[id] = models.AnonymousAuthor()
		}
	}
	return out
}

// Invalidate drops the cached profile of clerkID.
func (c *ProfileCache) Invalidate(clerkID string) {
	c.cache.Delete(clerkID)
}

func (c *ProfileCache) attachToPosts(ctx context.Context, posts []models.Post) {
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].UserID
	}
	authors := c.Resolve(ctx, ids)
	for i := range posts {
		a := authors[posts[i].UserID]
		posts[i].User = &a
	}
}

func (c *ProfileCache) attachToStatuses(ctx context.Context, statuses []models.Status) {
	ids := make([]string, len(statuses))
	for i := range statuses {
		ids[i] = statuses[i].UserID
	}
	authors := c.Resolve(ctx, ids)
	for i := range statuses {
		a := authors[statuses[i].UserID]
		statuses[i].User = &a
	}
}
