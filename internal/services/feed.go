package services

import (
	"context"
	"time"

	"broadcast/internal/apperr"
	"broadcast/internal/geo"
	"broadcast/internal/models"

	"gorm.io/gorm"
)

// FeedService answers read queries for posts and comments. It never writes.
type FeedService struct {
	db       *gorm.DB
	profiles *ProfileCache
	timeout  time.Duration
}

func NewFeedService(db *gorm.DB, profiles *ProfileCache, timeout time.Duration) *FeedService {
	return &FeedService{db: db, profiles: profiles, timeout: timeout}
}

// ListPosts returns every post visible in scope, newest first, with the
// author profile attached.
func (s *FeedService) ListPosts(ctx context.Context, scope geo.Scope) ([]models.Post, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	posts := []models.Post{}
	err := s.db.WithContext(ctx).
		Scopes(scope.Filter(), withPostAssociations, newest).
		Find(&posts).Error
	if err != nil {
		return nil, storeErr(ctx, err, "")
	}

	s.profiles.attachToPosts(ctx, posts)
	return posts, nil
}

// GetPost returns one post by public id.
func (s *FeedService) GetPost(ctx context.Context, pid string) (*models.Post, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var post models.Post
	err := s.db.WithContext(ctx).
		Scopes(withPostAssociations).
		Where("pid = ?", pid).
		First(&post).Error
	if err != nil {
		return nil, storeErr(ctx, err, "Post not found")
	}

	one := []models.Post{post}
	s.profiles.attachToPosts(ctx, one)
	return &one[0], nil
}

// ListComments returns the comments of a post, newest first. Replies stay
// in the order they were added. An unknown post has no comments.
func (s *FeedService) ListComments(ctx context.Context, postPid string) ([]models.Comment, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	comments := []models.Comment{}
	err := s.db.WithContext(ctx).
		Scopes(withCommentAssociations, newest).
		Where("post_pid = ?", postPid).
		Find(&comments).Error
	if err != nil {
		return nil, storeErr(ctx, err, "")
	}
	return comments, nil
}

// GetComment returns one comment with its replies.
func (s *FeedService) GetComment(ctx context.Context, cid string) (*models.Comment, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var comment models.Comment
	err := s.db.WithContext(ctx).
		Scopes(withCommentAssociations).
		Where("cid = ?", cid).
		First(&comment).Error
	if err != nil {
		return nil, storeErr(ctx, err, "Comment not found")
	}
	return &comment, nil
}
