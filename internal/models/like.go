package models

import (
	"encoding/json"
	"time"
)

// Like rows are set members: the unique index on (owner, user) is what
// makes a toggle idempotent. On the wire each set is a plain array of
// user ids.

type PostLike struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like_user"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_post_like_user;index"`
	CreatedAt time.Time
}

type CommentLike struct {
	ID        uint      `gorm:"primaryKey"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_user"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_comment_like_user"`
	CreatedAt time.Time
}

type ReplyLike struct {
	ID        uint      `gorm:"primaryKey"`
	ReplyID   uint      `gorm:"not null;uniqueIndex:idx_reply_like_user"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_reply_like_user"`
	CreatedAt time.Time
}

type StatusLike struct {
	ID        uint      `gorm:"primaryKey"`
	StatusID  uint      `gorm:"not null;uniqueIndex:idx_status_like_user"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_status_like_user"`
	CreatedAt time.Time
}

func (l PostLike) MarshalJSON() ([]byte, error)    { return json.Marshal(l.UserID) }
func (l CommentLike) MarshalJSON() ([]byte, error) { return json.Marshal(l.UserID) }
func (l ReplyLike) MarshalJSON() ([]byte, error)   { return json.Marshal(l.UserID) }
func (l StatusLike) MarshalJSON() ([]byte, error)  { return json.Marshal(l.UserID) }

func (l *PostLike) UnmarshalJSON(b []byte) error    { return json.Unmarshal(b, &l.UserID) }
func (l *CommentLike) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &l.UserID) }
func (l *ReplyLike) UnmarshalJSON(b []byte) error   { return json.Unmarshal(b, &l.UserID) }
func (l *StatusLike) UnmarshalJSON(b []byte) error  { return json.Unmarshal(b, &l.UserID) }

// LikeResult is the response shape of every like toggle.
type LikeResult struct {
	Success bool  `json:"success"`
	Likes   int64 `json:"likes"`
	Liked   bool  `json:"liked"`
}
