package models

import (
	"time"
)

// Comment belongs to exactly one post. UserName is captured when the
// comment is written and never re-resolved.
type Comment struct {
	ID        uint          `gorm:"primaryKey" json:"-"`
	Cid       string        `gorm:"uniqueIndex;size:36;not null" json:"id"`
	PostID    uint          `gorm:"not null;index" json:"-"`
	PostPid   string        `gorm:"size:36;not null;index" json:"postId"`
	UserID    string        `gorm:"not null;index" json:"userId"`
	UserName  string        `json:"userName"`
	Text      string        `gorm:"type:text;not null" json:"text"`
	Likes     []CommentLike `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"likes"`
	Replies   []Reply       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"replies"`
	CreatedAt time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Reply is nested under a comment. Replies keep insertion order (ID ASC).
type Reply struct {
	ID        uint        `gorm:"primaryKey" json:"-"`
	Rid       string      `gorm:"uniqueIndex;size:36;not null" json:"id"`
	CommentID uint        `gorm:"not null;index" json:"-"`
	UserID    string      `gorm:"not null" json:"userId"`
	UserName  string      `json:"userName"`
	Text      string      `gorm:"type:text;not null" json:"text"`
	Likes     []ReplyLike `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"likes"`
	CreatedAt time.Time   `json:"createdAt"`
}
