package feedclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"broadcast/internal/geo"
	"broadcast/internal/models"
	"broadcast/internal/realtime"

	log "github.com/sirupsen/logrus"
)

// FeedSource fetches the snapshot of a scope.
type FeedSource interface {
	ListPosts(ctx context.Context, scope geo.Scope) ([]models.Post, error)
}

// RoomSubscriber changes room membership on the realtime connection.
type RoomSubscriber interface {
	Join(room string) error
	Leave(room string) error
}

// Reconciler holds the local, ordered and de-duplicated feed of one scope.
// Snapshots come from a FeedSource, and room events from the subscriber
// are applied on top of the snapshot.
type Reconciler struct {
	source FeedSource
	rooms  RoomSubscriber

	switchMu sync.Mutex // serializes SetScope

	mu    sync.Mutex
	scope geo.Scope
	room  string // empty while switching
	posts []models.Post
}

func NewReconciler(source FeedSource, rooms RoomSubscriber) *Reconciler {
	return &Reconciler{source: source, rooms: rooms}
}

// SetScope moves the feed to scope: leave the current room, load the new
// snapshot, then join the new room. Events that arrive in between belong
// to no room and are ignored.
func (r *Reconciler) SetScope(ctx context.Context, scope geo.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.mu.Lock()
	old := r.room
	r.room = ""
	r.posts = nil
	r.mu.Unlock()

	if old != "" {
		if err := r.rooms.Leave(old); err != nil {
			return err
		}
	}

	posts, err := r.source.ListPosts(ctx, scope)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.scope = scope
	r.room = scope.Room()
	r.posts = dedupe(posts)
	r.mu.Unlock()

	return r.rooms.Join(scope.Room())
}

// Resync reloads the snapshot of the current scope and replaces the local
// feed with it. Room membership is left alone.
func (r *Reconciler) Resync(ctx context.Context) error {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.mu.Lock()
	scope, room := r.scope, r.room
	r.mu.Unlock()
	if room == "" {
		return nil
	}

	posts, err := r.source.ListPosts(ctx, scope)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.posts = dedupe(posts)
	r.mu.Unlock()
	return nil
}

// Scope returns the scope currently shown.
func (r *Reconciler) Scope() geo.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scope
}

// Apply folds a room event into the feed. It reports whether the feed
// changed.
func (r *Reconciler) Apply(ev realtime.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.room == "" || ev.Room != r.room {
		return false
	}

	switch ev.Type {
	case realtime.TypeNewPost:
		var post models.Post
		if err := json.Unmarshal(ev.Data, &post); err != nil {
			log.Warnf("decode newPost: %v", err)
			return false
		}
		if r.indexOf(post.Pid) >= 0 {
			return false
		}
		r.posts = append([]models.Post{post}, r.posts...)
		return true

	case realtime.TypeUpdatePost:
		var post models.Post
		if err := json.Unmarshal(ev.Data, &post); err != nil {
			log.Warnf("decode updatePost: %v", err)
			return false
		}
		// 原位替换，不重新排序
		i := r.indexOf(post.Pid)
		if i < 0 {
			return false
		}
		r.posts[i] = post
		return true

	case realtime.TypeDeletePost:
		var deleted realtime.DeletedPost
		if err := json.Unmarshal(ev.Data, &deleted); err != nil {
			log.Warnf("decode deletePost: %v", err)
			return false
		}
		i := r.indexOf(deleted.ID)
		if i < 0 {
			return false
		}
		r.posts = append(r.posts[:i], r.posts[i+1:]...)
		return true
	}
	return false
}

const resyncRetry = 2 * time.Second

// Run applies events until the channel closes or ctx is done. A signal on
// resync (may be nil) reloads the snapshot; a failed reload is retried.
// onChange, when set, is called after every change to the feed.
func (r *Reconciler) Run(ctx context.Context, events <-chan realtime.Event, resync <-chan struct{}, onChange func()) {
	var retry <-chan time.Time
	reload := func() {
		retry = nil
		if err := r.Resync(ctx); err != nil {
			log.Warnf("resync failed, retrying in %s: %v", resyncRetry, err)
			retry = time.After(resyncRetry)
			return
		}
		if onChange != nil {
			onChange()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if r.Apply(ev) && onChange != nil {
				onChange()
			}
		case <-resync:
			reload()
		case <-retry:
			reload()
		}
	}
}

// OptimisticLike flips userID's like on postID locally, then runs call.
// When call fails the local flip is undone. A later updatePost for the
// post overwrites whatever is shown.
func (r *Reconciler) OptimisticLike(ctx context.Context, postID, userID string, call func(ctx context.Context) (models.LikeResult, error)) (models.LikeResult, error) {
	r.mu.Lock()
	before, found := r.setLiked(postID, userID, nil)
	r.mu.Unlock()

	res, err := call(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if found {
			r.setLiked(postID, userID, &before)
		}
		return models.LikeResult{}, err
	}
	liked := res.Liked
	r.setLiked(postID, userID, &liked)
	return res, nil
}

// setLiked sets userID's membership in the post's likes, or toggles it
// when want is nil. It returns the previous membership. r.mu must be held.
func (r *Reconciler) setLiked(postID, userID string, want *bool) (bool, bool) {
	i := r.indexOf(postID)
	if i < 0 {
		return false, false
	}
	post := &r.posts[i]
	was := post.LikedBy(userID)
	target := !was
	if want != nil {
		target = *want
	}
	if target == was {
		return was, true
	}

	likes := make([]models.PostLike, 0, len(post.Likes)+1)
	for _, l := range post.Likes {
		if l.UserID != userID {
			likes = append(likes, l)
		}
	}
	if target {
		likes = append(likes, models.PostLike{UserID: userID})
	}
	post.Likes = likes
	return was, true
}

// Snapshot returns a copy of the feed.
func (r *Reconciler) Snapshot() []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Post, len(r.posts))
	copy(out, r.posts)
	return out
}

func (r *Reconciler) indexOf(pid string) int {
	for i := range r.posts {
		if r.posts[i].Pid == pid {
			return i
		}
	}
	return -1
}

func dedupe(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.Pid] {
			continue
		}
		seen[p.Pid] = true
		out = append(out, p)
	}
	return out
}
