package models

import "time"

// Exercise is a writing prompt on the practice page.
type Exercise struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExerciseRequest adds a prompt.
type ExerciseRequest struct {
	Title string `json:"title" validate:"required,max=300"`
}

// DefaultExercises seeds an empty prompt list.
var DefaultExercises = []string{
	"Write a bit about your most embarrassing moment",
	"Create a character based on someone you saw today",
	"Write about your worst date ever",
	"Describe your morning routine in a funny way",
	"Write about your pet's secret life",
	"Create a bit about technology frustrations",
	"Write about family holiday disasters",
	"Create a bit about grocery shopping adventures",
	"Write about gym experiences",
	"Describe your ideal day gone wrong",
}
