package services

import (
	"context"
	"time"

	"broadcast/internal/apperr"
	"broadcast/internal/geo"
	"broadcast/internal/models"
	"broadcast/internal/utils"

	"gorm.io/gorm"
)

// StatusService manages statuses: short-lived posts that expire after ttl
// and only support likes.
type StatusService struct {
	db       *gorm.DB
	profiles *ProfileCache
	timeout  time.Duration
	ttl      time.Duration
	now      func() time.Time
}

func NewStatusService(db *gorm.DB, profiles *ProfileCache, timeout, ttl time.Duration) *StatusService {
	return &StatusService{db: db, profiles: profiles, timeout: timeout, ttl: ttl, now: time.Now}
}

type CreateStatusInput struct {
	UserID     string   `json:"userId" validate:"required,max=128"`
	UserName   string   `json:"userName" validate:"max=100"`
	FirstName  string   `json:"firstName" validate:"max=100"`
	Nickname   string   `json:"nickname" validate:"max=100"`
	Caption    string   `json:"caption" validate:"max=1000"`
	Media      []string `json:"media" validate:"max=10,dive,max=2048"`
	LevelType  string   `json:"levelType" validate:"omitempty,oneof=home county constituency ward"`
	LevelValue string   `json:"levelValue" validate:"max=100"`
}

func (s *StatusService) CreateStatus(ctx context.Context, in CreateStatusInput) (*models.Status, error) {
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

	status := models.Status{
		Sid:         utils.NewID(),
		UserID:      in.UserID,
		UserName:    in.UserName,
		FirstName:   in.FirstName,
		Nickname:    in.Nickname,
		DisplayName: utils.FirstNonEmpty(in.FirstName, in.UserName, in.Nickname, "Anonymous"),
		Caption:     caption,
		Media:       media,
		LevelType:   string(scope.LevelType),
		LevelValue:  scope.LevelValue,
	}
	if err := s.db.WithContext(ctx).Create(&status).Error; err != nil {
		return nil, storeErr(ctx, err, "")
	}

	status.Likes = []models.StatusLike{}
	one := []models.Status{status}
	s.profiles.attachToStatuses(ctx, one)
	return &one[0], nil
}

// ListStatuses returns the unexpired statuses in scope, newest first.
func (s *StatusService) ListStatuses(ctx context.Context, scope geo.Scope) ([]models.Status, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	q := s.db.WithContext(ctx).
		Scopes(scope.Filter(), newest).
		Preload("Likes", orderByID)
	if s.ttl > 0 {
		q = q.Where("created_at > ?", s.now().Add(-s.ttl))
	}

	statuses := []models.Status{}
	if err := q.Find(&statuses).Error; err != nil {
		return nil, storeErr(ctx, err, "")
	}
	s.profiles.attachToStatuses(ctx, statuses)
	return statuses, nil
}

func (s *StatusService) ToggleStatusLike(ctx context.Context, sid, userID string) (models.LikeResult, error) {
	if err := requireUser(userID); err != nil {
		return models.LikeResult{}, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var result models.LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var status models.Status
		if err := tx.Select("id").Where("sid = ?", sid).First(&status).Error; err != nil {
			return err
		}
		liked, err := toggleMember(tx, &models.StatusLike{StatusID: status.ID, UserID: userID},
			"status_id = ? AND user_id = ?", status.ID, userID)
		if err != nil {
			return err
		}
		result.Liked = liked
		return tx.Model(&models.StatusLike{}).Where("status_id = ?", status.ID).Count(&result.Likes).Error
	})
	if err != nil {
		return models.LikeResult{}, storeErr(ctx, err, "Status not found")
	}
	result.Success = true
	return result, nil
}

// DeleteStatus removes a status. Only its author may delete it.
func (s *StatusService) DeleteStatus(ctx context.Context, sid, requesterID string) error {
	if err := requireUser(requesterID); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var status models.Status
		if err := tx.Where("sid = ?", sid).First(&status).Error; err != nil {
			return err
		}
		if status.UserID != requesterID {
			return apperr.Forbidden("Not authorized to delete this status")
		}
		if err := tx.Where("status_id = ?", status.ID).Delete(&models.StatusLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&status).Error
	})
	return storeErr(ctx, err, "Status not found")
}
