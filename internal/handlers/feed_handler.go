package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 30 * time.Second
	feedReadLimit  = 4096
)

// FeedHandler serves the paginated feed over REST and the live feed over a websocket.
type FeedHandler struct {
	source       feed.Source
	pageSize     int
	highlightTTL time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(source feed.Source, pageSize int, highlightTTL time.Duration, allowedOrigins []string, logger *zap.Logger) *FeedHandler {
	if pageSize <= 0 {
		pageSize = feed.DefaultPageSize
	}
	return &FeedHandler{
		source:       source,
		pageSize:     pageSize,
		highlightTTL: highlightTTL,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/ws", h.Live)
}

// FeedPage is one REST page of the feed.
type FeedPage struct {
	Items      []models.Post `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
	EndOfData  bool          `json:"endOfData"`
}

// GetFeed returns the page after ?cursor= for the ?q= prefix search
func (h *FeedHandler) GetFeed(c echo.Context) error {
	cursor, err := feed.DecodeCursor(c.QueryParam("cursor"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
	}
	q := feed.Query{
		Search: strings.TrimSpace(c.QueryParam("q")),
		Limit:  intQuery(c, "limit", h.pageSize, 50),
	}

	posts, err := h.source.Page(c.Request().Context(), q, cursor)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidCursor) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	page := FeedPage{Items: posts, EndOfData: len(posts) < q.Limit}
	if len(posts) > 0 {
		page.NextCursor = feed.CursorFor(posts[len(posts)-1]).Encode()
	}
	return respond(c, http.StatusOK, page)
}

// feedAction is a client frame on the live feed.
type feedAction struct {
	Type   string `json:"type"`
	Search string `json:"search"`
	PostID string `json:"postId"`
	Index  int    `json:"index"`
}

type feedFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Live upgrades to a websocket and runs one feed session for the connection. The
// client sends search, load_more, focus and visible actions; the server answers with
// state frames. ?q= sets the initial search and ?postId= focuses a deep-linked post.
func (h *FeedHandler) Live(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("feed websocket upgrade failed", zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &feedClient{
		conn:    conn,
		logger:  h.logger,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	client.session = feed.NewSession(h.source,
		feed.WithPageSize(h.pageSize),
		feed.WithHighlightTTL(h.highlightTTL),
		feed.WithLogger(h.logger),
		feed.OnChange(client.offerState),
	)

	go client.writePump()

	_ = client.session.SetSearch(ctx, strings.TrimSpace(c.QueryParam("q")))
	if id := c.QueryParam("postId"); id != "" {
		client.focus(ctx, id)
	}

	client.readPump(ctx)

	cancel()
	client.session.Close()
	client.wg.Wait()
	close(client.done)
	return nil
}

// feedClient owns one websocket. Session states are conflated: the writer always sends
// the newest state and skips the ones it never got to.
type feedClient struct {
	conn    *websocket.Conn
	session *feed.Session
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex
	latest *feed.State
	extra  []feedFrame

	pending chan struct{}
	done    chan struct{}
}

func (fc *feedClient) offerState(st feed.State) {
	fc.mu.Lock()
	fc.latest = &st
	fc.mu.Unlock()
	fc.wake()
}

func (fc *feedClient) offerFrame(f feedFrame) {
	fc.mu.Lock()
	fc.extra = append(fc.extra, f)
	fc.mu.Unlock()
	fc.wake()
}

func (fc *feedClient) wake() {
	select {
	case fc.pending <- struct{}{}:
	default:
	}
}

func (fc *feedClient) take() []feedFrame {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	frames := fc.extra
	fc.extra = nil
	if fc.latest != nil {
		frames = append(frames, feedFrame{Type: "state", Payload: *fc.latest})
		fc.latest = nil
	}
	return frames
}

func (fc *feedClient) readPump(ctx context.Context) {
	fc.conn.SetReadLimit(feedReadLimit)
	_ = fc.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		_, message, err := fc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fc.logger.Warn("feed websocket read error", zap.Error(err))
			}
			return
		}

		var action feedAction
		if err := json.Unmarshal(message, &action); err != nil {
			fc.offerFrame(feedFrame{Type: "error", Payload: echo.Map{"message": "invalid action"}})
			continue
		}

		switch action.Type {
		case "search":
			// synchronous so that consecutive searches apply in order
			_ = fc.session.SetSearch(ctx, strings.TrimSpace(action.Search))
		case "load_more":
			fc.async(func() { _ = fc.session.LoadMore(ctx) })
		case "visible":
			fc.async(func() { _ = fc.session.Observe(ctx, action.Index) })
		case "focus":
			fc.async(func() { fc.focus(ctx, action.PostID) })
		case "ping":
			fc.offerFrame(feedFrame{Type: "pong"})
		default:
			fc.offerFrame(feedFrame{Type: "error", Payload: echo.Map{"message": "unknown action " + action.Type}})
		}
	}
}

func (fc *feedClient) async(fn func()) {
	fc.wg.Add(1)
	go func() {
		defer fc.wg.Done()
		fn()
	}()
}

func (fc *feedClient) focus(ctx context.Context, id string) {
	if _, err := fc.session.Focus(ctx, id); errors.Is(err, feed.ErrNotFound) {
		fc.offerFrame(feedFrame{Type: "error", Payload: echo.Map{"message": "Post not found", "postId": id}})
	}
}

func (fc *feedClient) writePump() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		fc.conn.Close()
	}()

	for {
		select {
		case <-fc.pending:
			for _, frame := range fc.take() {
				_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := fc.conn.WriteJSON(frame); err != nil {
					return
				}
			}
		case <-ticker.C:
			_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := fc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-fc.done:
			_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			_ = fc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// originChecker allows the configured origins, or any origin when none are set.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
