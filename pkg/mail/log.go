package mail

import (
	"context"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// LogMailer writes messages to the log instead of sending them. It is used
// when no SendGrid key is configured.
type LogMailer struct {
	logg *logger.Logger
}

// NewLogMailer returns a mailer that only logs.
func NewLogMailer(logg *logger.Logger) *LogMailer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	ctx = m.logg.WithFields(ctx, map[string]any{
		"mail_to":      strings.Join(msg.To, ","),
		"mail_subject": msg.Subject,
	})
	m.logg.Info(ctx, "email delivery skipped; log mailer active")
	return nil
}
