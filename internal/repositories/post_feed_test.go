package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeStream struct {
	events    chan bson.M
	cur       bson.M
	err       error
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan bson.M), closed: make(chan struct{})}
}

func (f *fakeStream) Next(ctx context.Context) bool {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return false
		}
		f.cur = ev
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *fakeStream) Decode(val interface{}) error {
	b, err := bson.Marshal(f.cur)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, val)
}

func (f *fakeStream) Err() error { return f.err }

func (f *fakeStream) Close(context.Context) error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// windows hands out one window per query and records the call order.
type windows struct {
	mu      sync.Mutex
	calls   []string
	results [][]models.Post
	err     error
	served  int
}

func (w *windows) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *windows) log() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *windows) pages() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.served
}

func (w *windows) page(context.Context) ([]models.Post, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "page")
	if w.err != nil {
		return nil, w.err
	}
	i := w.served
	if i >= len(w.results) {
		i = len(w.results) - 1
	}
	w.served++
	return w.results[i], nil
}

func (w *windows) watch(stream *fakeStream, err error) watchFunc {
	return func(context.Context) (changeStream, error) {
		w.record("watch")
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
}

func nextSnapshot(t *testing.T, sub feed.Subscription) feed.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
		return feed.Snapshot{}
	}
}

func waitClosed(t *testing.T, sub feed.Subscription) {
	t.Helper()
	select {
	case _, ok := <-sub.Updates():
		require.False(t, ok, "unexpected snapshot")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func testPost(content string) models.Post {
	return models.Post{ID: primitive.NewObjectID(), Content: content}
}

func TestSubscribeWindow_WatchesBeforeFirstRead(t *testing.T) {
	p1, p2 := testPost("first"), testPost("second")
	stream := newFakeStream()
	w := &windows{results: [][]models.Post{{p1}, {p2, p1}}}

	sub, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(stream, nil), w.page)
	require.NoError(t, err)
	defer sub.Cancel()

	assert.Equal(t, []string{"watch", "page"}, w.log())
	assert.Equal(t, []models.Post{p1}, nextSnapshot(t, sub).Posts)

	// written after the first read, before anything consumed the stream
	stream.events <- bson.M{
		"operationType": "insert",
		"documentKey":   bson.M{"_id": p2.ID},
		"fullDocument":  bson.M{"content": p2.Content},
	}
	assert.Equal(t, []models.Post{p2, p1}, nextSnapshot(t, sub).Posts)
}

func TestSubscribeWindow_SkipsChangesOutsideWindow(t *testing.T) {
	p1, p2, other := testPost("a"), testPost("b"), testPost("c")
	stream := newFakeStream()
	w := &windows{results: [][]models.Post{{p1, p2}, {p2}}}

	sub, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(stream, nil), w.page)
	require.NoError(t, err)
	defer sub.Cancel()
	nextSnapshot(t, sub)

	stream.events <- bson.M{
		"operationType":     "update",
		"documentKey":       bson.M{"_id": other.ID},
		"updateDescription": bson.M{"updatedFields": bson.M{"likes": 3}},
	}
	stream.events <- bson.M{"operationType": "delete", "documentKey": bson.M{"_id": p1.ID}}

	assert.Equal(t, []models.Post{p2}, nextSnapshot(t, sub).Posts)
	assert.Equal(t, 2, w.pages())
}

func TestSubscribeWindow_WatchUnavailable(t *testing.T) {
	p1 := testPost("a")
	w := &windows{results: [][]models.Post{{p1}}}

	sub, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(nil, errors.New("not a replica set")), w.page)
	require.NoError(t, err)

	assert.Equal(t, []models.Post{p1}, nextSnapshot(t, sub).Posts)
	snap := nextSnapshot(t, sub)
	require.Error(t, snap.Err)
	assert.Contains(t, snap.Err.Error(), "not a replica set")
	waitClosed(t, sub)
}

func TestSubscribeWindow_StreamEnds(t *testing.T) {
	stream := newFakeStream()
	w := &windows{results: [][]models.Post{{testPost("a")}}}

	sub, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(stream, nil), w.page)
	require.NoError(t, err)
	nextSnapshot(t, sub)

	close(stream.events)
	snap := nextSnapshot(t, sub)
	require.Error(t, snap.Err)
	assert.Contains(t, snap.Err.Error(), "change stream closed")
	waitClosed(t, sub)

	select {
	case <-stream.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestSubscribeWindow_FirstReadFails(t *testing.T) {
	stream := newFakeStream()
	w := &windows{err: errors.New("boom")}

	_, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(stream, nil), w.page)
	require.Error(t, err)

	select {
	case <-stream.closed:
	default:
		t.Fatal("stream left open")
	}
}

func TestSubscribeWindow_CancelClosesStream(t *testing.T) {
	stream := newFakeStream()
	w := &windows{results: [][]models.Post{{testPost("a")}}}

	sub, err := subscribeWindow(context.Background(), feed.Query{}, w.watch(stream, nil), w.page)
	require.NoError(t, err)
	nextSnapshot(t, sub)

	sub.Cancel()
	waitClosed(t, sub)
	<-stream.closed
}

func TestPostChangeAffects(t *testing.T) {
	inWindow := primitive.NewObjectID()
	outside := primitive.NewObjectID()
	window := map[primitive.ObjectID]struct{}{inWindow: {}}

	change := func(op string, id primitive.ObjectID) postChange {
		var c postChange
		c.OperationType = op
		c.DocumentKey.ID = id
		return c
	}
	withContent := func(c postChange, content string) postChange {
		c.FullDocument = &struct {
			Content string `bson:"content"`
		}{Content: content}
		return c
	}
	withUpdate := func(c postChange, fields bson.M) postChange {
		c.UpdateDescription.UpdatedFields = fields
		return c
	}

	all := feed.Query{}
	search := feed.Query{Search: "knock"}

	tests := []struct {
		name   string
		q      feed.Query
		change postChange
		want   bool
	}{
		{"insert", all, withContent(change("insert", outside), "hello"), true},
		{"like in window", all, withUpdate(change("update", inWindow), bson.M{"likes": 1}), true},
		{"like outside window", all, withUpdate(change("update", outside), bson.M{"likes": 1}), false},
		{"delete in window", all, change("delete", inWindow), true},
		{"delete outside window", all, change("delete", outside), false},
		{"search insert matching", search, withContent(change("insert", outside), "knock knock"), true},
		{"search insert not matching", search, withContent(change("insert", outside), "hello"), false},
		{"search edit into range", search, withUpdate(change("update", outside), bson.M{"content": "knock it off"}), true},
		{"search edit out of range", search, withUpdate(change("update", outside), bson.M{"content": "hello"}), false},
		{"search edit in window", search, withUpdate(change("update", inWindow), bson.M{"content": "hello"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.change.affects(tt.q, window))
		})
	}
}

func TestToggleLikeUpdate_SingleStage(t *testing.T) {
	pipeline := toggleLikeUpdate("u1")
	require.Len(t, pipeline, 1)
	require.Len(t, pipeline[0], 1)
	assert.Equal(t, "$set", pipeline[0][0].Key)

	set := pipeline[0][0].Value.(bson.M)
	likedBy := set["liked_by"].(bson.M)["$cond"].(bson.A)
	likes := set["likes"].(bson.M)["$cond"].(bson.A)
	assert.Equal(t, likedBy[0], likes[0], "both fields branch on the same membership test")
	assert.Equal(t, bson.M{"$in": bson.A{"u1", bson.M{"$ifNull": bson.A{"$liked_by", bson.A{}}}}}, likes[0])
}
