package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/mail"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func newTestNotifier(t *testing.T, repo Repository, mailer mail.Mailer) Notifier {
	t.Helper()
	n, err := NewNotifier(NotifierParams{Repository: repo, Mailer: mailer, AdminEmail: "ops@tradedesk.test"})
	require.NoError(t, err)
	return n
}

func TestNotifyAdminPersistsBroadcast(t *testing.T) {
	var stored []*models.Notification
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		stored = append(stored, n)
		return nil
	}}
	mailer := &recordingMailer{}
	n := newTestNotifier(t, repo, mailer)

	id := uuid.New()
	n.NotifyAdmin(context.Background(), Notice{
		Type:    enums.NotificationTypeInquiryNew,
		Title:   "New inquiry",
		Content: "RFQ-2026-0001",
	}.About(enums.ReferenceTypeInquiry, id))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"ops@tradedesk.test"}, mailer.sent[0].To)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].UserID)
	require.NotNil(t, stored[0].ReferenceID)
	assert.Equal(t, id, *stored[0].ReferenceID)
}

func TestNotifyUserSwallowsFailures(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		return errors.New("db down")
	}}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	n := newTestNotifier(t, repo, mailer)

	n.NotifyUser(context.Background(), uuid.New(), "buyer@example.com", Notice{
		Type:    enums.NotificationTypeInquiryQuoted,
		Title:   "Quote ready",
		Content: "Your quote is ready",
	})
	assert.Len(t, mailer.sent, 1)
}

func TestNotifyEmailOnlySkipsInbox(t *testing.T) {
	created := 0
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		created++
		return nil
	}}
	mailer := &recordingMailer{}
	n := newTestNotifier(t, repo, mailer)

	n.NotifyEmailOnly(context.Background(), "guest@example.com", "Quote ready", "body")
	n.NotifyEmailOnly(context.Background(), "  ", "Quote ready", "body")

	assert.Len(t, mailer.sent, 1)
	assert.Zero(t, created)
}

func TestNewNotifierRequiresDeps(t *testing.T) {
	_, err := NewNotifier(NotifierParams{Mailer: &recordingMailer{}})
	require.Error(t, err)
	_, err = NewNotifier(NotifierParams{Repository: &fakeRepository{}})
	require.Error(t, err)
}
