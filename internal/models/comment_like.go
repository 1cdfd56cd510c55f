package models

import "time"

// CommentLike records one user's like on a comment
type CommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"commentId" gorm:"index;uniqueIndex:idx_comment_user_like"`
	UserID    string    `json:"userId" gorm:"index;uniqueIndex:idx_comment_user_like"`
	CreatedAt time.Time `json:"createdAt"`
}
