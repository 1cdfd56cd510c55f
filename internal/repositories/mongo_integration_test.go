package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoPosts connects to MONGO_TEST_URI and returns a repository on a throwaway database.
func mongoPosts(t *testing.T) *MongoPostRepository {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("syb_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewMongoPostRepository(db)
}

func TestToggleLike_ConcurrentSameUser(t *testing.T) {
	repo := mongoPosts(t)
	ctx := context.Background()

	p := &models.Post{AuthorID: "author", Content: "knock knock"}
	require.NoError(t, repo.CreatePost(ctx, p))
	_, liked, err := repo.ToggleLike(ctx, p.ID.Hex(), "u1")
	require.NoError(t, err)
	require.True(t, liked)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = repo.ToggleLike(ctx, p.ID.Hex(), "u1")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	got, err := repo.GetPostByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, []string{"u1"}, got.LikedBy)
}

func TestToggleLike_MissingPost(t *testing.T) {
	repo := mongoPosts(t)
	_, _, err := repo.ToggleLike(context.Background(), "000000000000000000000000", "u1")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestSubscribe_SeesWriteAfterFirstWindow(t *testing.T) {
	repo := mongoPosts(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.CheckChangeStreams(ctx); err != nil {
		t.Skipf("change streams unavailable: %v", err)
	}

	sub, err := repo.Subscribe(ctx, feed.Query{})
	require.NoError(t, err)
	defer sub.Cancel()

	p := &models.Post{AuthorID: "author", Content: "fresh"}
	require.NoError(t, repo.CreatePost(ctx, p))

	first := nextSnapshot(t, sub)
	require.NoError(t, first.Err)
	assert.Empty(t, first.Posts)

	select {
	case snap := <-sub.Updates():
		require.NoError(t, snap.Err)
		require.Len(t, snap.Posts, 1)
		assert.Equal(t, p.ID, snap.Posts[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("insert after the first window was not pushed")
	}
}
