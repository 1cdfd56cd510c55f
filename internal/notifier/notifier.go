// Package notifier mails the operators about every new feedback document.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/showyourbits/backend/internal/mailer"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// Subject of every feedback mail.
const Subject = "New Feedback Received - Show Your Bits"

// DefaultAdminURL is linked from the mail when none is configured.
const DefaultAdminURL = "https://showyourbits.com/admin"

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Marker records that a document's mail went out.
type Marker interface {
	MarkEmailSent(ctx context.Context, id string) error
}

// Processor turns feedback documents into mails. Delivery is at least once: a crash
// between sending and marking resends on the next start.
type Processor struct {
	mailer    Mailer
	marker    Marker
	recipient string
	adminURL  string
	logger    *zap.Logger
}

// NewProcessor wires a processor.
func NewProcessor(m Mailer, marker Marker, recipient, adminURL string, logger *zap.Logger) *Processor {
	if adminURL == "" {
		adminURL = DefaultAdminURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{mailer: m, marker: marker, recipient: recipient, adminURL: adminURL, logger: logger}
}

// Process mails f unless it is already marked, then marks it. Failures are logged and
// returned; the document stays unmarked when the mail could not be sent.
func (p *Processor) Process(ctx context.Context, f models.Feedback) (bool, error) {
	if f.EmailSent {
		return false, nil
	}
	log := p.logger.With(zap.String("feedbackId", f.ID), zap.String("userId", f.UserID))

	if err := p.mailer.Send(ctx, p.Message(f)); err != nil {
		log.Error("feedback notification email failed", zap.Error(err))
		return false, err
	}
	log.Info("feedback notification email sent")

	if err := p.marker.MarkEmailSent(ctx, f.ID); err != nil {
		log.Error("failed to mark feedback as emailed", zap.Error(err))
		return true, err
	}
	return true, nil
}

// Message renders the notification mail for f.
func (p *Processor) Message(f models.Feedback) mailer.Message {
	body := fmt.Sprintf(`
New feedback received from %s

Message:
%s

Feedback ID: %s
Timestamp: %s
User ID: %s

View in Admin Portal: %s
`, f.UserEmail, f.Message, f.ID, f.CreatedAt.Format(time.RFC1123), f.UserID, p.adminURL)

	return mailer.Message{To: p.recipient, Subject: Subject, Body: body}
}

// Watch listens to the collection and processes every added document until ctx ends.
// The first snapshot reports all existing documents as added, so anything left unmarked
// by an earlier run is retried once at startup.
func (p *Processor) Watch(ctx context.Context, col *firestore.CollectionRef) error {
	it := col.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) {
				return nil
			}
			return fmt.Errorf("feedback snapshots: %w", err)
		}
		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			var f models.Feedback
			if err := change.Doc.DataTo(&f); err != nil {
				p.logger.Warn("skipping undecodable feedback", zap.String("feedbackId", change.Doc.Ref.ID), zap.Error(err))
				continue
			}
			f.ID = change.Doc.Ref.ID
			_, _ = p.Process(ctx, f)
		}
	}
}
