package services

import (
	"context"
	"sync"
	"time"

	"broadcast/internal/apperr"
	"broadcast/internal/geo"
	"broadcast/internal/models"
	"broadcast/internal/realtime"

	log "github.com/sirupsen/logrus"
)

// PostLoader re-reads the committed state of a post.
type PostLoader func(ctx context.Context, pid string) (*models.Post, error)

type broadcastJob struct {
	typ   realtime.EventType
	pid   string
	post  *models.Post
	scope geo.Scope
}

// Publisher turns committed mutations into room events off the request
// path. newPost and deletePost go out as soon as the worker sees them;
// updatePost is coalesced per post and sent once per flush with the state
// read at flush time.
type Publisher struct {
	sink realtime.Publisher
	load PostLoader

	queue   chan broadcastJob // 待广播的事件队列
	pending map[string]bool   // 已排队但尚未刷新的 updatePost
	mu      sync.Mutex

	flushInterval time.Duration
	batchSize     int
	loadTimeout   time.Duration
}

func NewPublisher(sink realtime.Publisher, load PostLoader, queueSize int, flushInterval time.Duration) *Publisher {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	return &Publisher{
		sink:          sink,
		load:          load,
		queue:         make(chan broadcastJob, queueSize),
		pending:       make(map[string]bool),
		flushInterval: flushInterval,
		batchSize:     50,
		loadTimeout:   5 * time.Second,
	}
}

func (p *Publisher) NewPost(post *models.Post) {
	if post == nil {
		return
	}
	p.enqueue(broadcastJob{typ: realtime.TypeNewPost, pid: post.Pid, post: post})
}

// UpdatePost schedules an updatePost for pid. Calls for a post that is
// already scheduled are merged into the pending one.
func (p *Publisher) UpdatePost(pid string) {
	p.mu.Lock()
	if p.pending[pid] {
		p.mu.Unlock()
		return
	}
	p.pending[pid] = true
	p.mu.Unlock()

	if !p.enqueue(broadcastJob{typ: realtime.TypeUpdatePost, pid: pid}) {
		p.mu.Lock()
		delete(p.pending, pid)
		p.mu.Unlock()
	}
}

// DeletePost schedules a deletePost into the post's own room. The scope is
// passed in because the post no longer exists.
func (p *Publisher) DeletePost(pid string, scope geo.Scope) {
	p.enqueue(broadcastJob{typ: realtime.TypeDeletePost, pid: pid, scope: scope})
}

func (p *Publisher) enqueue(job broadcastJob) bool {
	select {
	case p.queue <- job:
		return true
	default:
		log.WithFields(log.Fields{"type": job.typ, "post": job.pid}).Warn("broadcast queue full, event dropped")
		return false
	}
}

// Run processes the queue until ctx is done. Pending updates are flushed
// before it returns.
func (p *Publisher) Run(ctx context.Context) {
	batch := make([]string, 0, p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case job := <-p.queue:
			if job.typ != realtime.TypeUpdatePost {
				p.dispatch(job)
				continue
			}
			batch = append(batch, job.pid)
			if len(batch) >= p.batchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			p.drain(batch)
			return
		}
	}
}

func (p *Publisher) drain(batch []string) {
	for {
		select {
		case job := <-p.queue:
			if job.typ == realtime.TypeUpdatePost {
				batch = append(batch, job.pid)
			} else {
				p.dispatch(job)
			}
		default:
			p.flush(batch)
			return
		}
	}
}

// flush sends one updatePost per post id with its latest state.
func (p *Publisher) flush(pids []string) {
	for _, pid := range pids {
		// 先清除 pending，之后的修改会重新排队
		p.mu.Lock()
		delete(p.pending, pid)
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.loadTimeout)
		post, err := p.load(ctx, pid)
		cancel()
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				// deleted since it was scheduled, deletePost already covers it
				continue
			}
			log.WithField("post", pid).Warnf("load post for updatePost failed: %v", err)
			continue
		}
		p.dispatch(broadcastJob{typ: realtime.TypeUpdatePost, pid: pid, post: post})
	}
}

func (p *Publisher) dispatch(job broadcastJob) {
	var (
		room string
		data interface{}
	)
	switch job.typ {
	case realtime.TypeDeletePost:
		room = job.scope.Room()
		data = realtime.DeletedPost{ID: job.pid}
	default:
		room = geo.NewScope(job.post.LevelType, job.post.LevelValue).Room()
		data = job.post
	}

	ev, err := realtime.NewEvent(job.typ, room, data)
	if err != nil {
		log.WithField("post", job.pid).Errorf("encode %s event: %v", job.typ, err)
		return
	}
	p.sink.Publish(ev)
	log.WithFields(log.Fields{"type": job.typ, "room": room, "post": job.pid}).Debug("event published")
}
