package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/showyourbits/backend/internal/models"
)

// FeedbackCollection is the Firestore collection the feedback notifier watches.
const FeedbackCollection = "feedback"

// FeedbackRepository defines the interface for feedback documents
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error
	ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error)
	MarkEmailSent(ctx context.Context, id string) error
}

// FirestoreFeedbackRepository implements FeedbackRepository for Firestore
type FirestoreFeedbackRepository struct {
	collection *firestore.CollectionRef
}

// NewFirestoreFeedbackRepository creates a new FirestoreFeedbackRepository
func NewFirestoreFeedbackRepository(client *firestore.Client) *FirestoreFeedbackRepository {
	return &FirestoreFeedbackRepository{collection: client.Collection(FeedbackCollection)}
}

// Collection exposes the underlying collection for snapshot listeners.
func (r *FirestoreFeedbackRepository) Collection() *firestore.CollectionRef {
	return r.collection
}

// CreateFeedback adds a document; createdAt is assigned by the server
func (r *FirestoreFeedbackRepository) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	ref, _, err := r.collection.Add(ctx, feedback)
	if err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}
	feedback.ID = ref.ID
	return nil
}

// ListFeedback returns the newest documents first
func (r *FirestoreFeedbackRepository) ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error) {
	docs, err := r.collection.OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	out := make([]models.Feedback, 0, len(docs))
	for _, doc := range docs {
		var f models.Feedback
		if err := doc.DataTo(&f); err != nil {
			return nil, fmt.Errorf("decode feedback %s: %w", doc.Ref.ID, err)
		}
		f.ID = doc.Ref.ID
		out = append(out, f)
	}
	return out, nil
}

// MarkEmailSent records that the notification mail for the document went out
func (r *FirestoreFeedbackRepository) MarkEmailSent(ctx context.Context, id string) error {
	_, err := r.collection.Doc(id).Update(ctx, []firestore.Update{
		{Path: "emailSent", Value: true},
		{Path: "emailSentAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("mark feedback %s: %w", id, err)
	}
	return nil
}
