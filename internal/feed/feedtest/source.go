// Package feedtest provides an in-memory feed.Source for tests.
package feedtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Source keeps posts in memory and pushes a new window to every subscriber after each
// mutation.
type Source struct {
	mu    sync.Mutex
	posts []models.Post
	subs  map[*subscription]struct{}
	gate  chan struct{}

	SubscribeErr error
	PageErr      error
	GetErr       error

	pageCalls int
	getCalls  int
}

// NewSource returns a source holding posts.
func NewSource(posts ...models.Post) *Source {
	s := &Source{subs: make(map[*subscription]struct{})}
	s.posts = append(s.posts, posts...)
	return s
}

// Posts builds n posts one minute apart, newest first, starting at newest.
func Posts(n int, newest time.Time) []models.Post {
	out := make([]models.Post, n)
	for i := range out {
		out[i] = models.Post{
			ID:        primitive.NewObjectID(),
			Content:   fmt.Sprintf("post %02d", i+1),
			AuthorID:  "author",
			CreatedAt: newest.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

// Add inserts posts and republishes.
func (s *Source) Add(posts ...models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, posts...)
	s.publishLocked()
}

// Replace overwrites the post with the same id and republishes.
func (s *Source) Replace(p models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == p.ID {
			s.posts[i] = p
		}
	}
	s.publishLocked()
}

// Remove deletes a post and republishes.
func (s *Source) Remove(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.posts[:0]
	for _, p := range s.posts {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.posts = out
	s.publishLocked()
}

// Fail pushes an error to every subscriber and ends their subscriptions.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.ch <- feed.Snapshot{Err: err}
		delete(s.subs, sub)
		sub.closeOnce.Do(func() { close(sub.ch) })
	}
}

// HoldPages makes Page block until the returned release func is called.
func (s *Source) HoldPages() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// PageCalls counts Page invocations.
func (s *Source) PageCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCalls
}

// GetCalls counts Get invocations.
func (s *Source) GetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

// Subscribers counts open subscriptions.
func (s *Source) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscribe implements feed.Source.
func (s *Source) Subscribe(_ context.Context, q feed.Query) (feed.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	sub := &subscription{src: s, q: q.WithDefaults(), ch: make(chan feed.Snapshot, 64)}
	s.subs[sub] = struct{}{}
	sub.ch <- feed.Snapshot{Posts: s.pageLocked(sub.q, nil)}
	return sub, nil
}

// Page implements feed.Source.
func (s *Source) Page(ctx context.Context, q feed.Query, after *feed.Cursor) ([]models.Post, error) {
	s.mu.Lock()
	s.pageCalls++
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PageErr != nil {
		return nil, s.PageErr
	}
	return s.pageLocked(q.WithDefaults(), after), nil
}

// Get implements feed.Source.
func (s *Source) Get(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, p := range s.posts {
		if p.ID.Hex() == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, feed.ErrNotFound
}

func (s *Source) pageLocked(q feed.Query, after *feed.Cursor) []models.Post {
	var matched []models.Post
	for _, p := range s.posts {
		if q.Matches(p) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return q.Before(matched[i], matched[j]) })

	if after != nil {
		oid, _ := primitive.ObjectIDFromHex(after.ID)
		anchor := models.Post{ID: oid, CreatedAt: after.CreatedAt, Content: after.Content}
		i := sort.Search(len(matched), func(i int) bool { return q.Before(anchor, matched[i]) })
		matched = matched[i:]
	}
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched
}

func (s *Source) publishLocked() {
	for sub := range s.subs {
		sub.ch <- feed.Snapshot{Posts: s.pageLocked(sub.q, nil)}
	}
}

type subscription struct {
	src       *Source
	q         feed.Query
	ch        chan feed.Snapshot
	closeOnce sync.Once
}

func (s *subscription) Updates() <-chan feed.Snapshot { return s.ch }

func (s *subscription) Cancel() {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	delete(s.src.subs, s)
	s.closeOnce.Do(func() { close(s.ch) })
}
