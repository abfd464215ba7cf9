package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"broadcast/internal/apperr"
	"broadcast/internal/geo"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestListPostsStoreUnavailable(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("dial tcp: connection refused"))

	profiles, err := NewProfileCache(gdb, 10, time.Minute)
	require.NoError(t, err)
	feed := NewFeedService(gdb, profiles, time.Second)

	posts, err := feed.ListPosts(context.Background(), geo.NewScope("home", ""))
	assert.Nil(t, posts)
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(err))
	assert.Equal(t, 500, apperr.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsTimeout(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "posts"`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	profiles, err := NewProfileCache(gdb, 10, time.Minute)
	require.NoError(t, err)
	feed := NewFeedService(gdb, profiles, 20*time.Millisecond)

	_, err = feed.ListPosts(context.Background(), geo.NewScope("ward", "Westlands"))
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Equal(t, 503, apperr.HTTPStatus(err))
}

func TestAddCommentRollsBackWhenIncrementFails(t *testing.T) {
	gdb, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "comments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "posts" SET "comments_count"=comments_count \+ \$1`).
		WillReturnError(errors.New("server closed the connection unexpectedly"))
	mock.ExpectRollback()

	events := &fakeBroadcaster{}
	engage := NewEngagementService(gdb, nil, events, time.Second)
	_, err := engage.AddComment(context.Background(), AddCommentInput{PostID: "p1", UserID: "A", Text: "hi"})
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(err))
	assert.Empty(t, events.all())
	assert.NoError(t, mock.ExpectationsWereMet())
}
