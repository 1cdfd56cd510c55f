package models

import (
	"time"

	"gorm.io/datatypes"
)

// Idea is an entry in the user's idea bank.
type Idea struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	UserID      string                      `json:"userId" gorm:"index"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt   time.Time                   `json:"createdAt" gorm:"index"`
}

// IdeaRequest creates or replaces an idea.
type IdeaRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=40"`
}
