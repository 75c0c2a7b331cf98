package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/mail"
	"github.com/google/uuid"
)

// Notice is the content of one notification before it is addressed.
type Notice struct {
	Type          enums.NotificationType
	Title         string
	Content       string
	ReferenceID   *uuid.UUID
	ReferenceType *enums.ReferenceType
}

// About points the notice at the entity it concerns.
func (n Notice) About(refType enums.ReferenceType, id uuid.UUID) Notice {
	n.ReferenceType = &refType
	n.ReferenceID = &id
	return n
}

// Notifier fans notices out to email and the in-app inbox. Every method is
// best effort: failures are logged and swallowed so a committed business
// operation is never reported as failed.
type Notifier interface {
	NotifyAdmin(ctx context.Context, notice Notice)
	NotifyUser(ctx context.Context, userID uuid.UUID, email string, notice Notice)
	NotifyEmailOnly(ctx context.Context, email, title, content string)
}

// NotifierParams configure the dispatcher.
type NotifierParams struct {
	Repository Repository
	Mailer     mail.Mailer
	AdminEmail string
	Logger     *logger.Logger
}

type dispatcher struct {
	repo       Repository
	mailer     mail.Mailer
	adminEmail string
	logg       *logger.Logger
}

// NewNotifier builds the email + inbox dispatcher.
func NewNotifier(params NotifierParams) (Notifier, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &dispatcher{
		repo:       params.Repository,
		mailer:     params.Mailer,
		adminEmail: strings.TrimSpace(params.AdminEmail),
		logg:       logg,
	}, nil
}

func (d *dispatcher) NotifyAdmin(ctx context.Context, notice Notice) {
	if d.adminEmail != "" {
		d.email(ctx, d.adminEmail, notice.Title, notice.Content)
	}
	d.persist(ctx, nil, notice)
}

func (d *dispatcher) NotifyUser(ctx context.Context, userID uuid.UUID, email string, notice Notice) {
	if strings.TrimSpace(email) != "" {
		d.email(ctx, email, notice.Title, notice.Content)
	}
	if userID == uuid.Nil {
		return
	}
	d.persist(ctx, &userID, notice)
}

func (d *dispatcher) NotifyEmailOnly(ctx context.Context, email, title, content string) {
	if strings.TrimSpace(email) == "" {
		d.logg.Warn(ctx, "email-only notification skipped: no address")
		return
	}
	d.email(ctx, email, title, content)
}

func (d *dispatcher) email(ctx context.Context, to, title, content string) {
	msg := mail.Message{
		To:      []string{to},
		Subject: title,
		Text:    content,
		HTML:    "<p>" + strings.ReplaceAll(html.EscapeString(content), "\n", "<br>") + "</p>",
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		logCtx := d.logg.WithField(ctx, "mail_subject", title)
		d.logg.Warn(logCtx, fmt.Sprintf("notification email failed: %v", err))
	}
}

func (d *dispatcher) persist(ctx context.Context, userID *uuid.UUID, notice Notice) {
	row := &models.Notification{
		UserID:        userID,
		Type:          notice.Type,
		Title:         notice.Title,
		Content:       notice.Content,
		ReferenceID:   notice.ReferenceID,
		ReferenceType: notice.ReferenceType,
	}
	if err := d.repo.Create(ctx, row); err != nil {
		logCtx := d.logg.WithField(ctx, "notification_type", string(notice.Type))
		d.logg.Warn(logCtx, fmt.Sprintf("persist notification failed: %v", err))
	}
}

// NotifyRecipients delivers notice to every resolved recipient and reports
// how many were addressed.
func NotifyRecipients(ctx context.Context, notifier Notifier, recipients []Recipient, notice Notice) int {
	for _, r := range recipients {
		notifier.NotifyUser(ctx, r.UserID, r.Email, notice)
	}
	return len(recipients)
}
