package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"broadcast/internal/apperr"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withTimeout bounds a service call. A zero timeout only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// storeErr classifies err, preferring Timeout when ctx has expired.
func storeErr(ctx context.Context, err error, notFound string) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &apperr.Error{Kind: apperr.KindTimeout, Message: "request timed out", Err: err}
	}
	return apperr.FromStore(err, notFound)
}

// toggleMember flips row's membership in its set. Rows matching the where
// clause are deleted; when there were none, row is inserted. A concurrent
// insert of the same member is absorbed by the unique index, so the result
// is "member" either way.
func toggleMember(tx *gorm.DB, row interface{}, query string, args ...interface{}) (bool, error) {
	res := tx.Where(query, args...).Delete(row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func withPostAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("Likes", orderByID).Preload("Recasts", orderByID)
}

func withCommentAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("Likes", orderByID).
		Preload("Replies", orderByID).
		Preload("Replies.Likes", orderByID)
}

// newest orders by creation time, falling back to insertion order so the
// feed is stable between identical reads.
func newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

var validate = validator.New()

// validateInput runs the struct tags of in and reports the first failure
// as a ValidationError.
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return apperr.Validation(field + " is required")
		case "oneof":
			return apperr.Validation(fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "max":
			return apperr.Validation(fmt.Sprintf("%s is too long", field))
		}
		return apperr.Validation(fmt.Sprintf("%s is invalid", field))
	}
	return apperr.Validation(err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation("userId is required")
	}
	return nil
}
