package models

import "time"

// Notification types.
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

// Notification tells a post author about a like or a comment.
type Notification struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Type         string    `json:"type" gorm:"size:20;index"`
	PostID       string    `json:"postId" gorm:"index"`
	FromUserID   string    `json:"fromUserId"`
	FromUserName string    `json:"fromUserName"`
	ToUserID     string    `json:"toUserId" gorm:"index"`
	Read         bool      `json:"read" gorm:"default:false;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
}
