package models

import "time"

// Comment represents a comment on a post. Replies point at their parent through
// ParentID; threads are one level deep.
type Comment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PostID      string    `json:"postId" gorm:"index"` // MongoDB ObjectID hex of the post
	ParentID    *uint     `json:"parentId" gorm:"index"`
	ReplyToName *string   `json:"replyToName"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId" gorm:"index"`
	AuthorName  string    `json:"authorName"`
	AuthorPhoto string    `json:"authorPhoto"`
	Likes       int       `json:"likes" gorm:"default:0"`
	LikedBy     []string  `json:"likedBy" gorm:"-"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=1000"`
	ParentID *uint  `json:"parentId"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
