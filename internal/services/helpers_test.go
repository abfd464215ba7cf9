package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"broadcast/internal/db/dbtest"
	"broadcast/internal/geo"
	"broadcast/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	typ   string
	pid   string
	scope geo.Scope
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) NewPost(post *models.Post) {
	f.record(recordedEvent{typ: "newPost", pid: post.Pid, scope: geo.NewScope(post.LevelType, post.LevelValue)})
}

func (f *fakeBroadcaster) UpdatePost(pid string) {
	f.record(recordedEvent{typ: "updatePost", pid: pid})
}

func (f *fakeBroadcaster) DeletePost(pid string, scope geo.Scope) {
	f.record(recordedEvent{typ: "deletePost", pid: pid, scope: scope})
}

func (f *fakeBroadcaster) record(ev recordedEvent) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) all() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

func (f *fakeBroadcaster) last() recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return recordedEvent{}
	}
	return f.events[len(f.events)-1]
}

type testEnv struct {
	db       *gorm.DB
	profiles *ProfileCache
	feed     *FeedService
	engage   *EngagementService
	statuses *StatusService
	users    *UserService
	events   *fakeBroadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := dbtest.Open(t)
	profiles, err := NewProfileCache(gdb, 100, time.Minute)
	require.NoError(t, err)

	events := &fakeBroadcaster{}
	feed := NewFeedService(gdb, profiles, 5*time.Second)
	mail := &MailService{}
	return &testEnv{
		db:       gdb,
		profiles: profiles,
		feed:     feed,
		engage:   NewEngagementService(gdb, feed, events, 5*time.Second),
		statuses: NewStatusService(gdb, profiles, 5*time.Second, 24*time.Hour),
		users:    NewUserService(gdb, profiles, mail, 5*time.Second),
		events:   events,
	}
}

func (e *testEnv) seedUser(t *testing.T, clerkID, nick string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.User{
		ClerkID:  clerkID,
		Email:    clerkID + "@example.com",
		NickName: nick,
	}).Error)
}

func (e *testEnv) createPost(t *testing.T, userID, caption, levelType, levelValue string) *models.Post {
	t.Helper()
	post, err := e.engage.CreatePost(context.Background(), CreatePostInput{
		UserID:     userID,
		Caption:    caption,
		LevelType:  levelType,
		LevelValue: levelValue,
	})
	require.NoError(t, err)
	return post
}

func postIDs(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Pid
	}
	return out
}

func likeIDs(likes []models.PostLike) []string {
	out := make([]string, len(likes))
	for i, l := range likes {
		out[i] = l.UserID
	}
	return out
}
