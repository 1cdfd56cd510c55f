package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultHighlightTTL is how long a focused post stays highlighted.
const DefaultHighlightTTL = 3 * time.Second

// State is what a client renders.
type State struct {
	Items     []models.Post `json:"items"`
	Search    string        `json:"search"`
	Loading   bool          `json:"loading"`
	EndOfData bool          `json:"endOfData"`
	Cursor    string        `json:"cursor,omitempty"`
	Error     string        `json:"error,omitempty"`
	Highlight string        `json:"highlight,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithHighlightTTL overrides DefaultHighlightTTL. Zero keeps the highlight until the
// next focus.
func WithHighlightTTL(d time.Duration) Option {
	return func(s *Session) { s.highlightTTL = d }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnChange registers a callback invoked with the latest state after every change.
// Calls are serialized.
func OnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

// Session is one client's view of the feed. The displayed list is the pinned posts,
// then the live window, then the tail. A post present in the live window is shown only
// there.
//
// Every search change bumps the generation; results of work started under an older
// generation are discarded.
type Session struct {
	src          Source
	pageSize     int
	highlightTTL time.Duration
	logger       *zap.Logger
	onChange     func(State)

	emitMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	query      Query
	sub        Subscription
	pinned     []models.Post
	live       []models.Post
	tail       []models.Post
	cursor     *Cursor
	tailLoaded bool
	ready      bool
	paging     bool
	endOfData  bool
	err        error
	highlight  string
	hlTimer    *time.Timer
	closed     bool
}

// NewSession creates an idle session. Call SetSearch to start it.
func NewSession(src Source, opts ...Option) *Session {
	s := &Session{
		src:          src,
		pageSize:     DefaultPageSize,
		highlightTTL: DefaultHighlightTTL,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.query = Query{Limit: s.pageSize}
	return s
}

// SetSearch drops everything loaded so far and subscribes to the live window for term.
// The reset is visible before the new window arrives. ctx bounds the subscription.
func (s *Session) SetSearch(ctx context.Context, term string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.gen++
	gen := s.gen
	s.query = Query{Search: term, Limit: s.pageSize}
	s.pinned, s.live, s.tail = nil, nil, nil
	s.cursor = nil
	s.tailLoaded, s.ready, s.paging, s.endOfData = false, false, false, false
	s.err = nil
	s.clearHighlightLocked()
	q := s.query
	s.mu.Unlock()
	s.emit()

	sub, err := s.src.Subscribe(ctx, q)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		return nil
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.logger.Warn("feed subscribe failed", zap.String("search", term), zap.Error(err))
		s.emit()
		return err
	}
	s.sub = sub
	s.mu.Unlock()

	go s.consume(gen, sub)
	return nil
}

func (s *Session) consume(gen uint64, sub Subscription) {
	for snap := range sub.Updates() {
		if !s.applySnapshot(gen, snap) {
			return
		}
	}
}

// applySnapshot reports whether the generation is still current.
func (s *Session) applySnapshot(gen uint64, snap Snapshot) bool {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return false
	}
	if snap.Err != nil {
		s.err = snap.Err
		s.mu.Unlock()
		s.logger.Warn("feed live window failed", zap.Error(snap.Err))
		s.emit()
		return true
	}

	next := dedupe(snap.Posts)
	if s.ready {
		s.tail = append(s.shiftedOut(next), s.tail...)
	}
	s.live = next
	s.ready = true

	nextIDs := idSet(next)
	s.tail = without(s.tail, nextIDs)
	s.pinned = without(s.pinned, nextIDs)

	if !s.tailLoaded {
		s.endOfData = len(next) < s.pageSize
		if rest := s.ordered(); len(rest) > 0 {
			s.cursor = CursorFor(rest[len(rest)-1])
		} else {
			s.cursor = nil
		}
	}
	s.mu.Unlock()
	s.emit()
	return true
}

// shiftedOut returns the live posts missing from next that now sort after the end of a
// full window. Those were pushed out by newer posts and stay visible. Any other missing
// post was deleted or stopped matching and is dropped.
func (s *Session) shiftedOut(next []models.Post) []models.Post {
	if len(next) < s.pageSize || len(next) == 0 {
		return nil
	}
	last := next[len(next)-1]
	nextIDs := idSet(next)
	var out []models.Post
	for _, p := range s.live {
		if nextIDs[p.ID.Hex()] {
			continue
		}
		if s.query.Before(last, p) {
			out = append(out, p)
		}
	}
	return out
}

// LoadMore fetches the page after the cursor and appends it to the tail. It does
// nothing while a page is loading, before the first live window, at end of data or
// after an error.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.ready || s.paging || s.endOfData || s.err != nil {
		s.mu.Unlock()
		return nil
	}
	s.paging = true
	gen := s.gen
	q := s.query
	after := s.cursor
	s.mu.Unlock()
	s.emit()

	posts, err := s.src.Page(ctx, q, after)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.paging = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.logger.Warn("feed page failed", zap.String("search", q.Search), zap.Error(err))
		s.emit()
		return err
	}
	present := idSet(s.pinned, s.live, s.tail)
	for _, p := range posts {
		id := p.ID.Hex()
		if present[id] {
			continue
		}
		present[id] = true
		s.tail = append(s.tail, p)
	}
	s.tailLoaded = true
	if len(posts) > 0 {
		s.cursor = CursorFor(posts[len(posts)-1])
	}
	s.endOfData = len(posts) < s.pageSize
	s.mu.Unlock()
	s.emit()
	return nil
}

// Observe is called with the index of the last rendered item the client can see. It
// loads the next page once the end of the list is visible.
func (s *Session) Observe(ctx context.Context, lastVisible int) error {
	s.mu.Lock()
	n := len(s.pinned) + len(s.live) + len(s.tail)
	s.mu.Unlock()
	if n == 0 || lastVisible < n-1 {
		return nil
	}
	return s.LoadMore(ctx)
}

// Focus shows the post with the given id and highlights it. A post that is not loaded
// yet is fetched and pinned above the live window. The cursor is left alone. It reports
// whether a fetch was needed.
func (s *Session) Focus(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if idSet(s.pinned, s.live, s.tail)[id] {
		s.setHighlightLocked(id)
		s.mu.Unlock()
		s.emit()
		return false, nil
	}
	gen := s.gen
	s.mu.Unlock()

	post, err := s.src.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		s.mu.Lock()
		if gen == s.gen && !s.closed {
			s.err = err
		}
		s.mu.Unlock()
		s.logger.Warn("feed focus failed", zap.String("postId", id), zap.Error(err))
		s.emit()
		return false, err
	}

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return false, nil
	}
	if !idSet(s.pinned, s.live, s.tail)[id] {
		s.pinned = append([]models.Post{*post}, s.pinned...)
	}
	s.setHighlightLocked(id)
	s.mu.Unlock()
	s.emit()
	return true, nil
}

func (s *Session) setHighlightLocked(id string) {
	s.clearHighlightLocked()
	s.highlight = id
	if s.highlightTTL <= 0 {
		return
	}
	gen := s.gen
	s.hlTimer = time.AfterFunc(s.highlightTTL, func() {
		s.mu.Lock()
		if gen != s.gen || s.highlight != id {
			s.mu.Unlock()
			return
		}
		s.highlight = ""
		s.hlTimer = nil
		s.mu.Unlock()
		s.emit()
	})
}

func (s *Session) clearHighlightLocked() {
	if s.hlTimer != nil {
		s.hlTimer.Stop()
		s.hlTimer = nil
	}
	s.highlight = ""
}

// Close cancels the subscription. Pending fetches are discarded when they return.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.clearHighlightLocked()
}

// Items returns the displayed list.
func (s *Session) Items() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// State returns a copy of the current view.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Items:     s.itemsLocked(),
		Search:    s.query.Search,
		Loading:   (!s.ready && s.err == nil) || s.paging,
		EndOfData: s.endOfData,
		Cursor:    s.cursor.Encode(),
		Highlight: s.highlight,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func (s *Session) itemsLocked() []models.Post {
	items := make([]models.Post, 0, len(s.pinned)+len(s.live)+len(s.tail))
	items = append(items, s.pinned...)
	return append(items, s.ordered()...)
}

// ordered is the live window followed by the tail.
func (s *Session) ordered() []models.Post {
	out := make([]models.Post, 0, len(s.live)+len(s.tail))
	out = append(out, s.live...)
	return append(out, s.tail...)
}

func (s *Session) emit() {
	if s.onChange == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.onChange(s.State())
}

func idSet(lists ...[]models.Post) map[string]bool {
	set := make(map[string]bool)
	for _, l := range lists {
		for _, p := range l {
			set[p.ID.Hex()] = true
		}
	}
	return set
}

func without(posts []models.Post, ids map[string]bool) []models.Post {
	out := posts[:0:0]
	for _, p := range posts {
		if !ids[p.ID.Hex()] {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		id := p.ID.Hex()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, p)
	}
	return out
}
