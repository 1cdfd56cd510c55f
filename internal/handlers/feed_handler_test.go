package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/feed/feedtest"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFeed(t *testing.T, src feed.Source) (*httptest.Server, func(path string) *httptest.ResponseRecorder) {
	t.Helper()
	e, g := newTestEcho()
	NewFeedHandler(src, 10, 0, nil, zap.NewNop()).RegisterFeedRoutes(g)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, func(path string) *httptest.ResponseRecorder {
		return do(t, e, http.MethodGet, path, "viewer", nil)
	}
}

func TestGetFeedPagesWithCursor(t *testing.T) {
	src := feedtest.NewSource(feedtest.Posts(25, time.Now())...)
	_, get := setupFeed(t, src)

	var seen []string
	cursor := ""
	for i := 0; i < 3; i++ {
		rec := get("/api/feed?cursor=" + cursor)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var page FeedPage
		decodeData(t, rec, &page)
		for _, p := range page.Items {
			seen = append(seen, p.Content)
		}
		cursor = page.NextCursor
		assert.Equal(t, i == 2, page.EndOfData)
	}

	require.Len(t, seen, 25)
	assert.Equal(t, "post 01", seen[0])
	assert.Equal(t, "post 25", seen[24])
}

func TestGetFeedSearchAndBadCursor(t *testing.T) {
	src := feedtest.NewSource(feedtest.Posts(25, time.Now())...)
	_, get := setupFeed(t, src)

	rec := get("/api/feed?q=post+1")
	require.Equal(t, http.StatusOK, rec.Code)
	var page FeedPage
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 10)
	for _, p := range page.Items {
		assert.True(t, strings.HasPrefix(p.Content, "post 1"))
	}
	assert.False(t, page.EndOfData)

	rec = get("/api/feed?cursor=!!not-base64")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type wsFrame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func dialFeed(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/feed/ws" + query
	header := http.Header{"X-Test-User": []string{"viewer"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitState reads frames until a state satisfies ok.
func waitState(t *testing.T, conn *websocket.Conn, ok func(feed.State) bool) feed.State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var frame struct {
			Type    string     `json:"type"`
			Payload feed.State `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "state" && ok(frame.Payload) {
			return frame.Payload
		}
	}
}

func contents(st feed.State) []string {
	out := make([]string, len(st.Items))
	for i, p := range st.Items {
		out[i] = p.Content
	}
	return out
}

func TestLiveFeedActions(t *testing.T) {
	src := feedtest.NewSource(feedtest.Posts(25, time.Now())...)
	srv, _ := setupFeed(t, src)
	conn := dialFeed(t, srv, "")

	st := waitState(t, conn, func(s feed.State) bool { return !s.Loading && len(s.Items) == 10 })
	assert.Equal(t, "post 01", st.Items[0].Content)
	assert.False(t, st.EndOfData)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "visible", "index": 9}))
	st = waitState(t, conn, func(s feed.State) bool { return !s.Loading && len(s.Items) == 20 })
	assert.Equal(t, "post 20", st.Items[19].Content)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "search", "search": "post 2"}))
	st = waitState(t, conn, func(s feed.State) bool { return s.Search == "post 2" && !s.Loading })
	assert.Equal(t, []string{"post 20", "post 21", "post 22", "post 23", "post 24", "post 25"}, contents(st))
	assert.True(t, st.EndOfData)
}

func TestLiveFeedDeepLinkPinsPost(t *testing.T) {
	posts := feedtest.Posts(25, time.Now())
	src := feedtest.NewSource(posts...)
	srv, _ := setupFeed(t, src)

	target := posts[22]
	conn := dialFeed(t, srv, "?postId="+target.ID.Hex())

	st := waitState(t, conn, func(s feed.State) bool { return s.Highlight == target.ID.Hex() })
	require.NotEmpty(t, st.Items)
	assert.Equal(t, target.ID, st.Items[0].ID)
}

func TestLiveFeedReportsMissingFocus(t *testing.T) {
	src := feedtest.NewSource(feedtest.Posts(3, time.Now())...)
	srv, _ := setupFeed(t, src)
	conn := dialFeed(t, srv, "")
	waitState(t, conn, func(s feed.State) bool { return !s.Loading })

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "focus", "postId": "000000000000000000000000"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "error" {
			assert.Equal(t, "Post not found", frame.Payload["message"])
			return
		}
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://showyourbits.dev/"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://showyourbits.dev")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
	assert.True(t, originChecker(nil)(req))
}
