package models

import (
	"time"
)

// LinkPreview is the unfurled metadata of the first link in a caption.
type LinkPreview struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}

type Post struct {
	ID            uint         `gorm:"primaryKey" json:"-"`
	Pid           string       `gorm:"uniqueIndex;size:36;not null" json:"id"`
	UserID        string       `gorm:"not null;index;uniqueIndex:idx_retweet_user" json:"userId"` // identity provider id
	UserName      string       `json:"userName,omitempty"`
	Caption       string       `gorm:"type:text" json:"caption"`
	Media         []string     `gorm:"serializer:json;type:text" json:"media"`
	LinkPreview   *LinkPreview `gorm:"serializer:json;type:text" json:"linkPreview,omitempty"`
	LevelType     string       `gorm:"size:20;not null;index:idx_post_scope" json:"levelType"`
	LevelValue    string       `gorm:"index:idx_post_scope" json:"levelValue"`
	CommentsCount int          `gorm:"not null;default:0" json:"commentsCount"`

	// Set only on legacy retweet copies.
	OriginalPostID *string `gorm:"size:36;index;uniqueIndex:idx_retweet_user" json:"originalPostId"`
	RetweetOf      *string `json:"retweetOf"`

	Likes    []PostLike   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"likes"`
	Recasts  []PostRecast `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"recasts"`
	Comments []Comment    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 非数据库字段，查询时由作者缓存填充
	User *Author `gorm:"-" json:"user,omitempty"`
}

// LikedBy reports whether userID is in the post's like set.
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// PostRecast is one recast entry. An empty Quote marks a plain recast,
// of which a user may hold at most one per post.
type PostRecast struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	PostID     uint      `gorm:"not null;index;uniqueIndex:idx_plain_recast,where:quote = ''" json:"-"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_plain_recast,where:quote = ''" json:"userId"`
	Nickname   string    `json:"nickname"`
	Quote      string    `gorm:"type:text;not null;default:''" json:"quote,omitempty"`
	RecastedAt time.Time `json:"recastedAt"`
}
