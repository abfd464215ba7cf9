package db_test

import (
	"testing"

	"broadcast/internal/db"
	"broadcast/internal/db/dbtest"
	"broadcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesTables(t *testing.T) {
	gdb := dbtest.Open(t)

	for _, m := range []interface{}{
		&models.User{}, &models.Post{}, &models.PostLike{}, &models.PostRecast{},
		&models.Comment{}, &models.CommentLike{}, &models.Reply{}, &models.ReplyLike{},
		&models.Status{}, &models.StatusLike{},
	} {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
}

func TestPostLikeUniquePerUser(t *testing.T) {
	gdb := dbtest.Open(t)

	post := models.Post{Pid: "p1", UserID: "u1", LevelType: "home", Media: []string{}}
	require.NoError(t, gdb.Create(&post).Error)

	require.NoError(t, gdb.Create(&models.PostLike{PostID: post.ID, UserID: "a"}).Error)
	err := gdb.Create(&models.PostLike{PostID: post.ID, UserID: "a"}).Error
	assert.Error(t, err)
}

func TestPlainRecastUniqueQuotesAccumulate(t *testing.T) {
	gdb := dbtest.Open(t)

	post := models.Post{Pid: "p1", UserID: "u1", LevelType: "home", Media: []string{}}
	require.NoError(t, gdb.Create(&post).Error)

	require.NoError(t, gdb.Create(&models.PostRecast{PostID: post.ID, UserID: "a"}).Error)
	assert.Error(t, gdb.Create(&models.PostRecast{PostID: post.ID, UserID: "a"}).Error)

	require.NoError(t, gdb.Create(&models.PostRecast{PostID: post.ID, UserID: "a", Quote: "one"}).Error)
	require.NoError(t, gdb.Create(&models.PostRecast{PostID: post.ID, UserID: "a", Quote: "two"}).Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := db.Open("mysql", "")
	assert.Error(t, err)
}
