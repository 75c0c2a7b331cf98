package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service is the inbox behind the notification bell. Every call is scoped to
// the actor: admins see their own rows plus broadcasts, everyone else only
// their own.
type Service interface {
	List(ctx context.Context, actor *auth.Actor, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, actor *auth.Actor) (int64, error)
	MarkRead(ctx context.Context, actor *auth.Actor, id uuid.UUID) error
	MarkAllRead(ctx context.Context, actor *auth.Actor) (int64, error)
}

type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func inboxOf(actor *auth.Actor) (inboxScope, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return inboxScope{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return inboxScope{UserID: actor.UserID, IncludeBroadcast: actor.IsAdmin()}, nil
}

func (s *service) List(ctx context.Context, actor *auth.Actor, params ListParams) (*ListResult, error) {
	scope, err := inboxOf(actor)
	if err != nil {
		return nil, err
	}
	q := inboxQuery{Scope: scope, Limit: params.Limit, UnreadOnly: params.UnreadOnly}
	if params.Cursor != "" {
		if q.After, err = pagination.ParseCursor(params.Cursor); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
	}

	rows, next, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	result := &ListResult{Items: rows}
	if result.Items == nil {
		result.Items = []models.Notification{}
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) UnreadCount(ctx context.Context, actor *auth.Actor) (int64, error) {
	scope, err := inboxOf(actor)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.CountUnread(ctx, scope)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return n, nil
}

// MarkRead is idempotent; an id outside the actor's inbox is not found.
func (s *service) MarkRead(ctx context.Context, actor *auth.Actor, id uuid.UUID) error {
	scope, err := inboxOf(actor)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, scope, id, s.now().UTC())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !found:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor *auth.Actor) (int64, error) {
	scope, err := inboxOf(actor)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, scope, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
