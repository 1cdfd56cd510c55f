package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/showyourbits/backend/internal/mailer"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeMarker struct {
	marked []string
	err    error
}

func (f *fakeMarker) MarkEmailSent(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

func feedback() models.Feedback {
	return models.Feedback{
		ID:        "fb1",
		UserID:    "u1",
		UserEmail: "comic@example.com",
		Message:   "Love the app",
		CreatedAt: time.Date(2025, 2, 3, 20, 15, 0, 0, time.UTC),
	}
}

func TestProcess_SendsAndMarks(t *testing.T) {
	m, mk := &fakeMailer{}, &fakeMarker{}
	p := NewProcessor(m, mk, "ops@example.com", "", nil)

	sent, err := p.Process(context.Background(), feedback())
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, Subject, msg.Subject)
	assert.Contains(t, msg.Body, "New feedback received from comic@example.com")
	assert.Contains(t, msg.Body, "Love the app")
	assert.Contains(t, msg.Body, "Feedback ID: fb1")
	assert.Contains(t, msg.Body, "User ID: u1")
	assert.Contains(t, msg.Body, DefaultAdminURL)
	assert.Equal(t, []string{"fb1"}, mk.marked)
}

func TestProcess_MailFailureLeavesUnmarked(t *testing.T) {
	m, mk := &fakeMailer{err: errors.New("smtp down")}, &fakeMarker{}
	p := NewProcessor(m, mk, "ops@example.com", "https://admin.test", nil)

	sent, err := p.Process(context.Background(), feedback())
	assert.Error(t, err)
	assert.False(t, sent)
	assert.Empty(t, mk.marked)
}

func TestProcess_SkipsAlreadySent(t *testing.T) {
	m, mk := &fakeMailer{}, &fakeMarker{}
	p := NewProcessor(m, mk, "ops@example.com", "", nil)

	f := feedback()
	f.EmailSent = true
	sent, err := p.Process(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, m.sent)
	assert.Empty(t, mk.marked)
}

func TestProcess_MarkFailureStillReportsSent(t *testing.T) {
	m, mk := &fakeMailer{}, &fakeMarker{err: errors.New("permission denied")}
	p := NewProcessor(m, mk, "ops@example.com", "", nil)

	sent, err := p.Process(context.Background(), feedback())
	assert.Error(t, err)
	assert.True(t, sent)
	assert.Len(t, m.sent, 1)
}

func TestMessage_UsesConfiguredAdminURL(t *testing.T) {
	p := NewProcessor(&fakeMailer{}, &fakeMarker{}, "ops@example.com", "https://admin.test", nil)
	assert.Contains(t, p.Message(feedback()).Body, "View in Admin Portal: https://admin.test")
}
