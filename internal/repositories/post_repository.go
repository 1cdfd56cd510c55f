package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrPostNotFound is returned when no post matches the id.
var ErrPostNotFound = errors.New("post not found")

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByUserID(ctx context.Context, userID string, limit int64) ([]models.Post, error)
	GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	UpdatePostContent(ctx context.Context, id, content string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error)
	SetCommentsCount(ctx context.Context, postID string, count int64) error
	AllPostIDs(ctx context.Context) ([]string, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// EnsureIndexes creates the indexes behind feed ordering, search and profile listing.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "content", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	post.ID = primitive.NewObjectID()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
		post.MediaTypes = []string{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPostNotFound
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByUserID retrieves posts by a specific user, newest first
func (r *MongoPostRepository) GetPostsByUserID(ctx context.Context, userID string, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	return r.find(ctx, bson.M{"author_id": userID}, findOptions)
}

// GetAllPosts retrieves all posts from MongoDB with offset pagination
func (r *MongoPostRepository) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, bson.D{}, findOptions)
}

// UpdatePostContent replaces the text of a post and returns the stored document
func (r *MongoPostRepository) UpdatePostContent(ctx context.Context, id, content string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPostNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"content":    content,
			"updated_at": time.Now().UTC(),
		},
	}
	var post models.Post
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes a post by ID from MongoDB
func (r *MongoPostRepository) DeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPostNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// ToggleLike flips userID's membership in liked_by and moves the likes counter with it
// in one pipeline update, so concurrent toggles by the same user each see the state the
// previous one left. It reports whether the post is liked afterwards.
func (r *MongoPostRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, false, ErrPostNotFound
	}

	var post models.Post
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		toggleLikeUpdate(userID),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, ErrPostNotFound
		}
		return nil, false, fmt.Errorf("toggle like: %w", err)
	}
	return &post, post.LikedByUser(userID), nil
}

// toggleLikeUpdate removes userID from liked_by and decrements likes when present, and
// appends and increments otherwise. Both fields are computed from the same input
// document inside one $set stage.
func toggleLikeUpdate(userID string) mongo.Pipeline {
	likedBy := bson.M{"$ifNull": bson.A{"$liked_by", bson.A{}}}
	likes := bson.M{"$ifNull": bson.A{"$likes", 0}}
	liked := bson.M{"$in": bson.A{userID, likedBy}}

	return mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"liked_by": bson.M{"$cond": bson.A{
			liked,
			bson.M{"$filter": bson.M{"input": likedBy, "cond": bson.M{"$ne": bson.A{"$$this", userID}}}},
			bson.M{"$concatArrays": bson.A{likedBy, bson.A{userID}}},
		}},
		"likes": bson.M{"$cond": bson.A{
			liked,
			bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{likes, 1}}}},
			bson.M{"$add": bson.A{likes, 1}},
		}},
	}}}}
}

// SetCommentsCount overwrites the stored comment counter
func (r *MongoPostRepository) SetCommentsCount(ctx context.Context, postID string, count int64) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return ErrPostNotFound
	}
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "comments": bson.M{"$ne": count}},
		bson.M{"$set": bson.M{"comments": count}})
	return err
}

// AllPostIDs lists every post id
func (r *MongoPostRepository) AllPostIDs(ctx context.Context) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.D{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID.Hex())
	}
	return ids, cursor.Err()
}

func (r *MongoPostRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
