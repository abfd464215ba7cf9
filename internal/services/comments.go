package services

import (
	"context"

	"broadcast/internal/apperr"
	"broadcast/internal/models"
	"broadcast/internal/utils"

	"gorm.io/gorm"
)

type AddCommentInput struct {
	PostID   string `json:"postId" validate:"required"`
	UserID   string `json:"userId" validate:"required,max=128"`
	UserName string `json:"userName" validate:"max=100"`
	Text     string `json:"text" validate:"required,max=2000"`
}

type AddReplyInput struct {
	UserID   string `json:"userId" validate:"required,max=128"`
	UserName string `json:"userName" validate:"max=100"`
	Text     string `json:"text" validate:"required,max=2000"`
}

// AddComment creates a comment and bumps the parent's commentsCount in the
// same transaction.
func (s *EngagementService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	text := utils.CleanText(in.Text)
	if text == "" {
		return nil, apperr.Validation("text is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	comment := models.Comment{
		Cid:      utils.NewID(),
		PostPid:  in.PostID,
		UserID:   in.UserID,
		UserName: utils.FirstNonEmpty(in.UserName, "Anonymous"),
		Text:     text,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postID, err := postIDByPid(tx, in.PostID)
		if err != nil {
			return err
		}
		comment.PostID = postID
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + ?", 1)).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Post not found")
	}

	s.events.UpdatePost(in.PostID)
	comment.Likes = []models.CommentLike{}
	comment.Replies = []models.Reply{}
	return &comment, nil
}

// AddReply appends a reply to a comment and returns the updated comment.
// Replies do not count towards the post's commentsCount.
func (s *EngagementService) AddReply(ctx context.Context, cid string, in AddReplyInput) (*models.Comment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	text := utils.CleanText(in.Text)
	if text == "" {
		return nil, apperr.Validation("text is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentID, err := commentIDByCid(tx, cid)
		if err != nil {
			return err
		}
		return tx.Create(&models.Reply{
			Rid:       utils.NewID(),
			CommentID: commentID,
			UserID:    in.UserID,
			UserName:  utils.FirstNonEmpty(in.UserName, "Anonymous"),
			Text:      text,
		}).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Comment not found")
	}
	return s.feed.GetComment(ctx, cid)
}

// ToggleCommentLike flips userID's like on a comment.
func (s *EngagementService) ToggleCommentLike(ctx context.Context, cid, userID string) (*models.Comment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentID, err := commentIDByCid(tx, cid)
		if err != nil {
			return err
		}
		_, err = toggleMember(tx, &models.CommentLike{CommentID: commentID, UserID: userID},
			"comment_id = ? AND user_id = ?", commentID, userID)
		return err
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Comment not found")
	}
	return s.feed.GetComment(ctx, cid)
}

// ToggleReplyLike flips userID's like on one reply of a comment. The reply
// is addressed by its own id.
func (s *EngagementService) ToggleReplyLike(ctx context.Context, cid, rid, userID string) (*models.Comment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentID, err := commentIDByCid(tx, cid)
		if err != nil {
			return err
		}
		var reply models.Reply
		if err := tx.Select("id").Where("rid = ? AND comment_id = ?", rid, commentID).First(&reply).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Reply not found")
			}
			return err
		}
		_, err = toggleMember(tx, &models.ReplyLike{ReplyID: reply.ID, UserID: userID},
			"reply_id = ? AND user_id = ?", reply.ID, userID)
		return err
	})
	if err != nil {
		return nil, storeErr(ctx, err, "Comment not found")
	}
	return s.feed.GetComment(ctx, cid)
}

// ReplyIDAt resolves the index-th reply of a comment, in insertion order,
// to its id. Older clients address replies by position; the position is
// resolved once and every mutation after that is keyed by id.
func (s *EngagementService) ReplyIDAt(ctx context.Context, cid string, index int) (string, error) {
	if index < 0 {
		return "", apperr.Validation("Invalid reply index")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	db := s.db.WithContext(ctx)
	commentID, err := commentIDByCid(db, cid)
	if err != nil {
		return "", storeErr(ctx, err, "Comment not found")
	}

	var replies []models.Reply
	err = db.Select("rid").Where("comment_id = ?", commentID).
		Scopes(orderByID).Offset(index).Limit(1).Find(&replies).Error
	if err != nil {
		return "", storeErr(ctx, err, "")
	}
	if len(replies) == 0 {
		return "", apperr.NotFound("Reply not found")
	}
	return replies[0].Rid, nil
}

// DeleteComment removes a comment with its replies and likes and lowers
// the parent's commentsCount, never below zero. The comment's author and
// the post's author may delete it.
func (s *EngagementService) DeleteComment(ctx context.Context, cid, requesterID string) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cid = ?", cid).First(&comment).Error; err != nil {
			return err
		}
		if comment.UserID != requesterID {
			var post models.Post
			if err := tx.Select("user_id").Where("id = ?", comment.PostID).First(&post).Error; err != nil {
				return err
			}
			if post.UserID != requesterID {
				return apperr.Forbidden("Not authorized")
			}
		}

		replyIDs := tx.Model(&models.Reply{}).Select("id").Where("comment_id = ?", comment.ID)
		if err := tx.Where("reply_id IN (?)", replyIDs).Delete(&models.ReplyLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&comment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("CASE WHEN comments_count > 0 THEN comments_count - 1 ELSE 0 END")).Error
	})
	if err != nil {
		return storeErr(ctx, err, "Comment not found")
	}

	s.events.UpdatePost(comment.PostPid)
	return nil
}

func commentIDByCid(tx *gorm.DB, cid string) (uint, error) {
	var comment models.Comment
	if err := tx.Select("id").Where("cid = ?", cid).First(&comment).Error; err != nil {
		return 0, err
	}
	return comment.ID, nil
}
