package models

import (
	"time"
)

// Status is a short-lived story. It shares the like mechanics of Post but
// has no comments or recasts.
type Status struct {
	ID          uint         `gorm:"primaryKey" json:"-"`
	Sid         string       `gorm:"uniqueIndex;size:36;not null" json:"id"`
	UserID      string       `gorm:"not null;index" json:"userId"`
	UserName    string       `json:"userName,omitempty"`
	FirstName   string       `json:"firstName,omitempty"`
	Nickname    string       `json:"nickname,omitempty"`
	DisplayName string       `json:"displayName"`
	Caption     string       `gorm:"type:text" json:"caption"`
	Media       []string     `gorm:"serializer:json;type:text" json:"media"`
	LevelType   string       `gorm:"size:20;index:idx_status_scope" json:"levelType,omitempty"`
	LevelValue  string       `gorm:"index:idx_status_scope" json:"levelValue,omitempty"`
	Likes       []StatusLike `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"likes"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`

	User *Author `gorm:"-" json:"user,omitempty"`
}
