package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Bit is a private draft of comedic material.
type Bit struct {
	ID        uint                        `json:"id" gorm:"primaryKey"`
	UserID    string                      `json:"userId" gorm:"index"`
	Title     string                      `json:"title"`
	Content   string                      `json:"content"`
	Tags      datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt time.Time                   `json:"createdAt"`
}

// BitRequest creates or replaces a bit.
type BitRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"max=20000"`
	Tags    []string `json:"tags" validate:"max=20,dive,max=40"`
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
