package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/showyourbits/backend/internal/feed"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ feed.Source = (*MongoPostRepository)(nil)

// Page implements feed.Source with a keyset query on the feed ordering.
func (r *MongoPostRepository) Page(ctx context.Context, q feed.Query, after *feed.Cursor) ([]models.Post, error) {
	q = q.WithDefaults()
	filter, err := feedFilter(q, after)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(feedSort(q)).SetLimit(int64(q.Limit))
	posts, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("feed page: %w", err)
	}
	return posts, nil
}

// Get implements feed.Source.
func (r *MongoPostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.GetPostByID(ctx, id)
	if errors.Is(err, ErrPostNotFound) {
		return nil, feed.ErrNotFound
	}
	return post, err
}

// Subscribe implements feed.Source. The change stream is opened before the window is
// read, so a write that lands between the two still produces an event. The window is
// queried again after every event that can change it. Watching needs a replica set;
// when it fails the subscription delivers the first window followed by the error.
func (r *MongoPostRepository) Subscribe(ctx context.Context, q feed.Query) (feed.Subscription, error) {
	q = q.WithDefaults()
	page := func(ctx context.Context) ([]models.Post, error) { return r.Page(ctx, q, nil) }
	return subscribeWindow(ctx, q, r.watchPosts, page)
}

// CheckChangeStreams opens and closes a change stream on posts. It fails on a standalone
// server, where live feed updates cannot work.
func (r *MongoPostRepository) CheckChangeStreams(ctx context.Context) error {
	stream, err := r.watchPosts(ctx)
	if err != nil {
		return err
	}
	return stream.Close(ctx)
}

// changeStream is the part of *mongo.ChangeStream the subscription reads.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

type watchFunc func(ctx context.Context) (changeStream, error)

type pageFunc func(ctx context.Context) ([]models.Post, error)

func (r *MongoPostRepository) watchPosts(ctx context.Context) (changeStream, error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{
		"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
	}}}}
	stream, err := r.collection.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func subscribeWindow(ctx context.Context, q feed.Query, watch watchFunc, page pageFunc) (feed.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	stream, watchErr := watch(subCtx)
	if watchErr != nil {
		stream = nil
	}

	first, err := page(subCtx)
	if err != nil {
		if stream != nil {
			_ = stream.Close(context.Background())
		}
		cancel()
		return nil, err
	}

	sub := &changeStreamSubscription{
		updates: make(chan feed.Snapshot, 1),
		cancel:  cancel,
	}
	go sub.run(subCtx, q, stream, watchErr, first, page)
	return sub, nil
}

type changeStreamSubscription struct {
	updates chan feed.Snapshot
	cancel  context.CancelFunc
}

func (s *changeStreamSubscription) Updates() <-chan feed.Snapshot { return s.updates }

func (s *changeStreamSubscription) Cancel() { s.cancel() }

func (s *changeStreamSubscription) run(ctx context.Context, q feed.Query, stream changeStream, watchErr error, first []models.Post, page pageFunc) {
	defer close(s.updates)
	defer s.cancel()
	if stream != nil {
		defer stream.Close(context.Background())
	}

	if !s.send(ctx, feed.Snapshot{Posts: first}) {
		return
	}
	if watchErr != nil {
		s.send(ctx, feed.Snapshot{Err: fmt.Errorf("watch posts: %w", watchErr)})
		return
	}

	window := windowIDs(first)
	for stream.Next(ctx) {
		var change postChange
		if err := stream.Decode(&change); err != nil {
			s.send(ctx, feed.Snapshot{Err: fmt.Errorf("decode post change: %w", err)})
			return
		}
		if !change.affects(q, window) {
			continue
		}
		posts, err := page(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.send(ctx, feed.Snapshot{Err: err})
			}
			return
		}
		window = windowIDs(posts)
		if !s.send(ctx, feed.Snapshot{Posts: posts}) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	err := stream.Err()
	if err == nil {
		err = errors.New("change stream closed")
	}
	s.send(ctx, feed.Snapshot{Err: fmt.Errorf("watch posts: %w", err)})
}

func (s *changeStreamSubscription) send(ctx context.Context, snap feed.Snapshot) bool {
	select {
	case s.updates <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// postChange is one change stream event on posts.
type postChange struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *struct {
		Content string `bson:"content"`
	} `bson:"fullDocument"`
	UpdateDescription struct {
		UpdatedFields bson.M `bson:"updatedFields"`
	} `bson:"updateDescription"`
}

// affects reports whether the change can alter the window whose ids are given. Updates
// never touch created_at, so outside the window only inserts and replaces move an
// unfiltered window. A search window also moves when content enters the prefix range.
func (c postChange) affects(q feed.Query, window map[primitive.ObjectID]struct{}) bool {
	if _, ok := window[c.DocumentKey.ID]; ok {
		return true
	}
	switch c.OperationType {
	case "insert", "replace":
		if q.Search == "" {
			return true
		}
		return c.FullDocument != nil && q.Matches(models.Post{Content: c.FullDocument.Content})
	case "update":
		if q.Search == "" {
			return false
		}
		content, ok := c.UpdateDescription.UpdatedFields["content"].(string)
		return ok && q.Matches(models.Post{Content: content})
	default:
		return false
	}
}

func windowIDs(posts []models.Post) map[primitive.ObjectID]struct{} {
	ids := make(map[primitive.ObjectID]struct{}, len(posts))
	for _, p := range posts {
		ids[p.ID] = struct{}{}
	}
	return ids
}

func feedSort(q feed.Query) bson.D {
	if q.Search != "" {
		return bson.D{{Key: "content", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

// feedFilter selects the query's posts that sort strictly after the cursor.
func feedFilter(q feed.Query, after *feed.Cursor) (bson.M, error) {
	var clauses bson.A
	if q.Search != "" {
		lo, hi := feed.PrefixRange(q.Search)
		clauses = append(clauses, bson.M{"content": bson.M{"$gte": lo, "$lt": hi}})
	}
	if after != nil {
		oid, err := primitive.ObjectIDFromHex(after.ID)
		if err != nil {
			return nil, feed.ErrInvalidCursor
		}
		older := bson.A{
			bson.M{"created_at": bson.M{"$lt": after.CreatedAt}},
			bson.M{"created_at": after.CreatedAt, "_id": bson.M{"$lt": oid}},
		}
		if q.Search != "" {
			older = bson.A{
				bson.M{"content": bson.M{"$gt": after.Content}},
				bson.M{"content": after.Content, "created_at": bson.M{"$lt": after.CreatedAt}},
				bson.M{"content": after.Content, "created_at": after.CreatedAt, "_id": bson.M{"$lt": oid}},
			}
		}
		clauses = append(clauses, bson.M{"$or": older})
	}
	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0].(bson.M), nil
	default:
		return bson.M{"$and": clauses}, nil
	}
}
