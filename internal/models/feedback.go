package models

import "time"

// Feedback is a Firestore document in the "feedback" collection.
type Feedback struct {
	ID          string     `json:"id" firestore:"-"`
	UserID      string     `json:"userId" firestore:"userId"`
	UserEmail   string     `json:"userEmail" firestore:"userEmail"`
	Message     string     `json:"message" firestore:"message"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	EmailSent   bool       `json:"emailSent" firestore:"emailSent"`
	EmailSentAt *time.Time `json:"emailSentAt,omitempty" firestore:"emailSentAt,omitempty"`
}

// FeedbackRequest is the body for submitting feedback.
type FeedbackRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}
