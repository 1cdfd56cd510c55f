package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Content       string    `json:"content"`
	SenderID      string    `json:"senderId" gorm:"index"`
	SenderName    string    `json:"senderName"`
	RecipientID   string    `json:"recipientId" gorm:"index"`
	RecipientName string    `json:"recipientName"`
	Read          bool      `json:"read" gorm:"default:false"`
	CreatedAt     time.Time `json:"createdAt" gorm:"index"`
}

// SendMessageRequest defines the body for sending a message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Content     string `json:"content" validate:"required,max=5000"`
}
