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

	"gorm.io/gorm"
)

// UserService maintains the local copy of identity-provider accounts.
type UserService struct {
	db       *gorm.DB
	profiles *ProfileCache
	mail     *MailService
	timeout  time.Duration

	AdminEmail string
	BaseURL    string
}

func NewUserService(db *gorm.DB, profiles *ProfileCache, mail *MailService, timeout time.Duration) *UserService {
	return &UserService{db: db, profiles: profiles, mail: mail, timeout: timeout}
}

type UpsertUserInput struct {
	ClerkID   string `json:"clerkId" validate:"required,max=128"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	NickName  string `json:"nickName" validate:"max=100"`
	Image     string `json:"image" validate:"max=2048"`
	Provider  string `json:"provider" validate:"max=20"`
}

type LocationInput struct {
	ClerkID      string `json:"clerkId" validate:"required"`
	County       string `json:"county" validate:"max=100"`
	Constituency string `json:"constituency" validate:"max=100"`
	Ward         string `json:"ward" validate:"max=100"`
}

// Upsert creates the user or, when clerkId is known, overwrites the fields
// that were provided. It reports whether the user was created.
func (s *UserService) Upsert(ctx context.Context, in UpsertUserInput) (*models.User, bool, error) {
	if err := validateInput(in); err != nil {
		return nil, false, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, created, err := s.upsert(ctx, in)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// created concurrently, update it instead
		user, created, err = s.upsert(ctx, in)
	}
	if err != nil {
		return nil, false, storeErr(ctx, err, "User not found")
	}
	s.profiles.Invalidate(in.ClerkID)
	return user, created, nil
}

func (s *UserService) upsert(ctx context.Context, in UpsertUserInput) (*models.User, bool, error) {
	var user models.User
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("clerk_id = ?", in.ClerkID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			user = models.User{
				ClerkID:   in.ClerkID,
				Email:     in.Email,
				FirstName: in.FirstName,
				LastName:  in.LastName,
				NickName:  in.NickName,
				Image:     in.Image,
				Provider:  utils.FirstNonEmpty(in.Provider, "clerk"),
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		for col, v := range map[string]string{
			"email":      in.Email,
			"first_name": in.FirstName,
			"last_name":  in.LastName,
			"nick_name":  in.NickName,
			"image":      in.Image,
			"provider":   in.Provider,
		} {
			if strings.TrimSpace(v) != "" {
				updates[col] = v
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &user, created, nil
}

func (s *UserService) UpdateLocation(ctx context.Context, in LocationInput) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.update(ctx, in.ClerkID, map[string]interface{}{
		"county":       strings.TrimSpace(in.County),
		"constituency": strings.TrimSpace(in.Constituency),
		"ward":         strings.TrimSpace(in.Ward),
	})
}

func (s *UserService) UpdateImage(ctx context.Context, clerkID, image string) (*models.User, error) {
	if strings.TrimSpace(clerkID) == "" {
		return nil, apperr.Validation("clerkId is required")
	}
	if strings.TrimSpace(image) == "" {
		return nil, apperr.Validation("image is required")
	}
	return s.update(ctx, clerkID, map[string]interface{}{"image": strings.TrimSpace(image)})
}

func (s *UserService) update(ctx context.Context, clerkID string, updates map[string]interface{}) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "User not found")
	}
	s.profiles.Invalidate(clerkID)
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, clerkID string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
		return nil, storeErr(ctx, err, "User not found")
	}
	return &user, nil
}

// DefaultScope is the narrowest level the user has a location for, or
// home when none is set.
func (s *UserService) DefaultScope(ctx context.Context, clerkID string) (geo.Scope, error) {
	user, err := s.Get(ctx, clerkID)
	if err != nil {
		return geo.Scope{}, err
	}
	return DefaultScopeOf(user), nil
}

func DefaultScopeOf(u *models.User) geo.Scope {
	switch {
	case strings.TrimSpace(u.Ward) != "":
		return geo.NewScope(string(geo.Ward), u.Ward)
	case strings.TrimSpace(u.Constituency) != "":
		return geo.NewScope(string(geo.Constituency), u.Constituency)
	case strings.TrimSpace(u.County) != "":
		return geo.NewScope(string(geo.County), u.County)
	}
	return geo.NewScope(string(geo.Home), "")
}

// RequestVerification stores a fresh token on the user with email and mails
// the admin inbox a link that verifies the account.
func (s *UserService) RequestVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}
	token, err := utils.RandomToken(32)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update("verify_token", token)
	if res.Error != nil {
		return storeErr(ctx, res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}

	link := strings.TrimRight(s.BaseURL, "/") + "/api/verify/" + token
	s.mail.SendVerificationRequest(s.AdminEmail, email, link)
	return nil
}

// Verify marks the owner of token as verified. A token works once.
func (s *UserService) Verify(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.Validation("Invalid or expired token")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("verify_token = ?", token).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("Invalid or expired token")
			}
			return err
		}
		return tx.Model(&user).Updates(map[string]interface{}{"is_verified": true, "verify_token": ""}).Error
	})
	if err != nil {
		return nil, storeErr(ctx, err, "")
	}
	user.IsVerified = true
	user.VerifyToken = ""
	s.profiles.Invalidate(user.ClerkID)
	return &user, nil
}
