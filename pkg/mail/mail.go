package mail

import (
	"context"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Validate trims recipients and rejects messages that cannot be delivered.
func (m *Message) Validate() error {
	recipients := make([]string, 0, len(m.To))
	seen := make(map[string]struct{}, len(m.To))
	for _, to := range m.To {
		addr := strings.ToLower(strings.TrimSpace(to))
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		recipients = append(recipients, addr)
	}
	m.To = recipients
	if len(m.To) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "body is required")
	}
	return nil
}

// FromConfig returns a SendGrid mailer when an API key is configured and a
// log-only mailer otherwise.
func FromConfig(cfg config.SendgridConfig, logg *logger.Logger) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLogMailer(logg), nil
	}
	return NewSendGridMailer(cfg.APIKey, cfg.DefaultFrom, WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout))
}
