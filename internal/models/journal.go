package models

import "time"

// JournalEntry is a dated note in the user's journal.
type JournalEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"index"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JournalEntryRequest creates or edits an entry.
type JournalEntryRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}
