// Package feed keeps a newest-first post list in sync with the store: a live window
// pushed by a subscription, a cursor-paged tail fetched on demand, and deep-linked
// posts pinned at the top.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
)

// DefaultPageSize is the live window size and the size of every tail page.
const DefaultPageSize = 10

// highSentinel closes the prefix range used by search.
const highSentinel = "\uf8ff"

var (
	// ErrNotFound is returned by Source.Get for a missing post.
	ErrNotFound = errors.New("post not found")
	// ErrClosed is returned by a closed session.
	ErrClosed = errors.New("feed session closed")
	// ErrInvalidCursor is returned when a cursor string cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Query selects the feed: everything newest first, or posts whose content starts with
// Search ordered by content and then newest first.
type Query struct {
	Search string
	Limit  int
}

// WithDefaults fills in the page size.
func (q Query) WithDefaults() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	return q
}

// PrefixRange returns the inclusive lower and exclusive upper content bounds for term.
func PrefixRange(term string) (string, string) {
	return term, term + highSentinel
}

// Matches reports whether p belongs to the query's result set.
func (q Query) Matches(p models.Post) bool {
	if q.Search == "" {
		return true
	}
	lo, hi := PrefixRange(q.Search)
	return p.Content >= lo && p.Content < hi
}

// Before reports whether a sorts ahead of b. Ties on time fall back to the id so that
// cursors are stable.
func (q Query) Before(a, b models.Post) bool {
	if q.Search != "" && a.Content != b.Content {
		return a.Content < b.Content
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() > b.ID.Hex()
}

// Cursor references the last item of a fetched page.
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Content   string    `json:"content,omitempty"`
}

// CursorFor builds the cursor positioned at p.
func CursorFor(p models.Post) *Cursor {
	return &Cursor{ID: p.ID.Hex(), CreatedAt: p.CreatedAt, Content: p.Content}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Encode. An empty token is a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Snapshot is one push from a subscription: the full current window, or an error after
// which the subscription delivers nothing more.
type Snapshot struct {
	Posts []models.Post
	Err   error
}

// Subscription is a live query handle. Updates is closed after Cancel or after an
// error snapshot.
type Subscription interface {
	Updates() <-chan Snapshot
	Cancel()
}

// Source is the store behind a feed.
type Source interface {
	// Subscribe pushes the newest q.Limit matching posts now and after every change.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	// Page returns up to q.Limit matching posts strictly after the cursor.
	Page(ctx context.Context, q Query, after *Cursor) ([]models.Post, error)
	// Get fetches a single post or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Post, error)
}
