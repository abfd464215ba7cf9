package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"broadcast/internal/apperr"
	"broadcast/internal/geo"
	"broadcast/internal/models"
	"broadcast/internal/utils"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Broadcaster receives post changes after they are committed.
type Broadcaster interface {
	NewPost(post *models.Post)
	UpdatePost(pid string)
	DeletePost(pid string, scope geo.Scope)
}

// EngagementService owns every write to posts, comments and replies.
// Membership sets (likes, plain recasts) are changed with per-row inserts
// and deletes and counters with in-place increments, so concurrent
// mutations of different fields of one post never overwrite each other.
type EngagementService struct {
	db      *gorm.DB
	feed    *FeedService
	events  Broadcaster
	timeout time.Duration
	now     func() time.Time
}

func NewEngagementService(db *gorm.DB, feed *FeedService, events Broadcaster, timeout time.Duration) *EngagementService {
	return &EngagementService{db: db, feed: feed, events: events, timeout: timeout, now: time.Now}
}

type CreatePostInput struct {
	UserID      string              `json:"userId" validate:"required,max=128"`
	UserName    string              `json:"userName" validate:"max=100"`
	Caption     string              `json:"caption" validate:"max=5000"`
	Media       []string            `json:"media" validate:"max=10,dive,max=2048"`
	LevelType   string              `json:"levelType" validate:"omitempty,oneof=home county constituency ward"`
	LevelValue  string              `json:"levelValue" validate:"max=100"`
	LinkPreview *models.LinkPreview `json:"linkPreview"`
}

type UpdatePostInput struct {
	UserID      string              `json:"userId" validate:"required"`
	Caption     *string             `json:"caption" validate:"omitempty,max=5000"`
	Media       *[]string           `json:"media" validate:"omitempty,max=10,dive,max=2048"`
	LinkPreview *models.LinkPreview `json:"linkPreview"`
	LevelType   string              `json:"levelType"`
	LevelValue  string              `json:"levelValue"`
}

type RecastInput struct {
	UserID    string `json:"userId" validate:"required"`
	Nickname  string `json:"nickname" validate:"max=100"`
	QuoteText string `json:"quoteText" validate:"max=1000"`
}

// CreatePost stores a new post and announces it in its room.
func (s *EngagementService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	caption := utils.CleanText(in.Caption)
	media := utils.CleanList(in.Media)
	if caption == "" && len(media) == 0 {
		return nil, apperr.Validation("caption or media is required")
	}
	scope := geo.NewScope(in.LevelType, in.LevelValue)
	if err := scope.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	post := models.Post{
		Pid:         utils.NewID(),
		UserID:      in.UserID,
		UserName:    in.UserName,
		Caption:     caption,
		Media:       media,
		LinkPreview: in.LinkPreview,
		LevelType:   string(scope.LevelType),
		LevelValue:  scope.LevelValue,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := tx.Select("id", "nick_name", "first_name").Where("clerk_id = ?", in.UserID).First(&author).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.AuthorNotFound("User not found")
			}
			return err
		}
		if post.UserName == "" {
			post.UserName = utils.FirstNonEmpty(author.NickName, author.FirstName)
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "")
	}

	created, err := s.feed.GetPost(ctx, post.Pid)
	if err != nil {
		return nil, err
	}
	s.events.NewPost(created)
	return created, nil
}

// UpdatePost edits the content of a post. Only the author may do it and
// the scope can never change.
func (s *EngagementService) UpdatePost(ctx context.Context, pid string, in UpdatePostInput) (*models.Post, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.LevelType != "" || in.LevelValue != "" {
		return nil, apperr.Validation("levelType and levelValue cannot be changed")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
			return err
		}
		if post.UserID != in.UserID {
			return apperr.Forbidden("Not authorized")
		}

		if in.Caption != nil {
			post.Caption = utils.CleanText(*in.Caption)
		}
		if in.Media != nil {
			post.Media = utils.CleanList(*in.Media)
		}
		if in.LinkPreview != nil {
			post.LinkPreview = in.LinkPreview
		}
		if post.Caption == "" && len(post.Media) == 0 {
			return apperr.Validation("caption or media is required")
		}
		return tx.Model(&post).Select("caption", "media", "link_preview").Updates(&post).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Post not found")
	}

	s.events.UpdatePost(pid)
	return s.feed.GetPost(ctx, pid)
}

// DeletePost removes a post together with its comments, replies and
// engagement rows. Only the author may delete.
func (s *EngagementService) DeletePost(ctx context.Context, pid, requesterID string) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
			return err
		}
		if post.UserID != requesterID {
			return apperr.Forbidden("Not authorized")
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID)
		replyIDs := tx.Model(&models.Reply{}).Select("id").Where("comment_id IN (?)", commentIDs)
		steps := []struct {
			model interface{}
			query string
			arg   interface{}
		}{
			{&models.ReplyLike{}, "reply_id IN (?)", replyIDs},
			{&models.Reply{}, "comment_id IN (?)", commentIDs},
			{&models.CommentLike{}, "comment_id IN (?)", commentIDs},
			{&models.Comment{}, "post_id = ?", post.ID},
			{&models.PostLike{}, "post_id = ?", post.ID},
			{&models.PostRecast{}, "post_id = ?", post.ID},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&post)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return storeErr(ctx, err, "Post not found")
	}

	s.events.DeletePost(pid, geo.NewScope(post.LevelType, post.LevelValue))
	return nil
}

// ToggleLike adds userID to the post's likes, or removes it when present.
func (s *EngagementService) ToggleLike(ctx context.Context, pid, userID string) (models.LikeResult, error) {
	if err := requireUser(userID); err != nil {
		return models.LikeResult{}, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var result models.LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postID, err := postIDByPid(tx, pid)
		if err != nil {
			return err
		}
		liked, err := toggleMember(tx, &models.PostLike{PostID: postID, UserID: userID},
			"post_id = ? AND user_id = ?", postID, userID)
		if err != nil {
			return err
		}
		result.Liked = liked
		return tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&result.Likes).Error
	})
	if err != nil {
		return models.LikeResult{}, storeErr(ctx, err, "Post not found")
	}

	result.Success = true
	s.events.UpdatePost(pid)
	return result, nil
}

// Recast records a re-share of a post. Without quote text it toggles the
// user's single plain recast; with quote text it always appends a new
// entry.
func (s *EngagementService) Recast(ctx context.Context, pid string, in RecastInput) (*models.Post, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	// the branch follows what the caller sent, not what survives cleaning
	quoted := strings.TrimSpace(in.QuoteText) != ""
	quote := utils.CleanText(in.QuoteText)
	if quoted && quote == "" {
		return nil, apperr.Validation("quoteText is empty after sanitizing")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postID, err := postIDByPid(tx, pid)
		if err != nil {
			return err
		}
		recast := &models.PostRecast{
			PostID:     postID,
			UserID:     in.UserID,
			Nickname:   in.Nickname,
			Quote:      quote,
			RecastedAt: s.now(),
		}
		if quoted {
			return tx.Create(recast).Error
		}
		_, err = toggleMember(tx, recast, "post_id = ? AND user_id = ? AND quote = ?", postID, in.UserID, "")
		return err
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Post not found")
	}

	s.events.UpdatePost(pid)
	return s.feed.GetPost(ctx, pid)
}

// Retweet is the legacy share: it copies the original into a new post in
// the same scope. A user can retweet a given post only once.
func (s *EngagementService) Retweet(ctx context.Context, pid, userID, userName string) (*models.Post, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var copied models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original models.Post
		if err := tx.Where("pid = ?", pid).First(&original).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Post{}).Where("original_post_id = ? AND user_id = ?", pid, userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Validation("Already retweeted")
		}

		originalID := original.Pid
		retweetOf := utils.FirstNonEmpty(original.UserName, "Unknown")
		copied = models.Post{
			Pid:            utils.NewID(),
			UserID:         userID,
			UserName:       userName,
			Caption:        original.Caption,
			Media:          original.Media,
			LevelType:      original.LevelType,
			LevelValue:     original.LevelValue,
			OriginalPostID: &originalID,
			RetweetOf:      &retweetOf,
		}
		if copied.Media == nil {
			copied.Media = []string{}
		}
		return tx.Create(&copied).Error
	})
	if apperr.Is(storeErr(ctx, err, ""), apperr.KindConflict) {
		// lost a race with a concurrent retweet by the same user
		return nil, apperr.Validation("Already retweeted")
	}
	if err != nil {
		return nil, storeErr(ctx, err, "Post not found")
	}

	created, err := s.feed.GetPost(ctx, copied.Pid)
	if err != nil {
		return nil, err
	}
	s.events.NewPost(created)
	return created, nil
}

// RepairCommentCounts recomputes every post's comment counter from the
// comments table. It is a maintenance operation, not part of any request.
func (s *EngagementService) RepairCommentCounts(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(
		"UPDATE posts SET comments_count = (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)")
	if res.Error != nil {
		return 0, storeErr(ctx, res.Error, "")
	}
	log.Printf("repaired comment counts of %d posts", res.RowsAffected)
	return res.RowsAffected, nil
}

func postIDByPid(tx *gorm.DB, pid string) (uint, error) {
	var post models.Post
	if err := tx.Select("id").Where("pid = ?", pid).First(&post).Error; err != nil {
		return 0, err
	}
	return post.ID, nil
}
