package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media kinds accepted on posts.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Post represents a feed post stored in MongoDB
type Post struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Content     string             `json:"content" bson:"content"`
	AuthorID    string             `json:"authorId" bson:"author_id"`
	AuthorName  string             `json:"authorName" bson:"author_name"`
	AuthorPhoto string             `json:"authorPhoto" bson:"author_photo"`
	MediaURLs   []string           `json:"mediaUrls" bson:"media_urls"`
	MediaTypes  []string           `json:"mediaTypes" bson:"media_types"`
	Likes       int                `json:"likes" bson:"likes"`
	LikedBy     []string           `json:"likedBy" bson:"liked_by"`
	Comments    int                `json:"comments" bson:"comments"`
	Shares      int                `json:"shares" bson:"shares"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// LikedByUser reports whether uid is in the post's like set.
func (p *Post) LikedByUser(uid string) bool {
	for _, id := range p.LikedBy {
		if id == uid {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content    string   `json:"content" validate:"max=5000"`
	MediaURLs  []string `json:"mediaUrls" validate:"max=4,dive,url"`
	MediaTypes []string `json:"mediaTypes" validate:"max=4,dive,oneof=image video"`
}

// UpdatePostRequest defines the request body for editing a post
type UpdatePostRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// LikeResult is returned by a like toggle.
type LikeResult struct {
	PostID  string   `json:"postId"`
	Liked   bool     `json:"liked"`
	Likes   int      `json:"likes"`
	LikedBy []string `json:"likedBy"`
}
