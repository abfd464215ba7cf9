package models

import (
	"time"
)

// User is the local cache of an identity-provider account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ClerkID      string    `gorm:"uniqueIndex;not null" json:"clerkId"`
	Email        string    `gorm:"not null" json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	NickName     string    `gorm:"index" json:"nickName"`
	Image        string    `json:"image"`
	Provider     string    `gorm:"size:20;default:'clerk'" json:"provider"`
	County       string    `json:"county"`
	Constituency string    `json:"constituency"`
	Ward         string    `json:"ward"`
	IsVerified   bool      `gorm:"default:false" json:"isVerified"`
	VerifyToken  string    `gorm:"size:64;index" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the profile attached to posts and statuses on read.
type Author struct {
	NickName  string  `json:"nickName"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Image     *string `json:"image"`
}

// AnonymousAuthor is used when the author id is not in the user cache.
func AnonymousAuthor() Author {
	return Author{NickName: "Anonymous"}
}

// AuthorOf builds the display profile of u.
func AuthorOf(u User) Author {
	a := Author{
		NickName:  u.NickName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if a.NickName == "" {
		a.NickName = u.FirstName
	}
	if a.NickName == "" {
		a.NickName = "Anonymous"
	}
	if u.Image != "" {
		img := u.Image
		a.Image = &img
	}
	return a
}
