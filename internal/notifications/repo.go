package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, q inboxQuery) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, scope inboxScope) (int64, error)
	MarkRead(ctx context.Context, scope inboxScope, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, scope inboxScope, at time.Time) (int64, error)
	PurgeRead(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// inboxScope selects the rows a caller owns: their own and, for admins, broadcasts.
type inboxScope struct {
	UserID           uuid.UUID
	IncludeBroadcast bool
}

type inboxQuery struct {
	Scope      inboxScope
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) inbox(ctx context.Context, scope inboxScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{})
	if scope.IncludeBroadcast {
		return q.Where("(user_id = ? OR user_id IS NULL)", scope.UserID)
	}
	return q.Where("user_id = ?", scope.UserID)
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) List(ctx context.Context, q inboxQuery) ([]models.Notification, *pagination.Cursor, error) {
	tx := r.inbox(ctx, q.Scope)
	if q.UnreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	if c := q.After; c != nil {
		tx = tx.Where("(created_at < ? OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	err := tx.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, scope inboxScope) (int64, error) {
	var n int64
	err := r.inbox(ctx, scope).Where("is_read = ?", false).Count(&n).Error
	return n, err
}

// MarkRead reports whether id is in the caller's inbox. A row that is already
// read keeps its original read_at but still counts as found.
func (r *repositoryImpl) MarkRead(ctx context.Context, scope inboxScope, id uuid.UUID, at time.Time) (bool, error) {
	res := r.inbox(ctx, scope).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", at),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, scope inboxScope, at time.Time) (int64, error) {
	res := r.inbox(ctx, scope).
		Where("is_read = ?", false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// PurgeRead deletes at most limit read notifications created before cutoff,
// oldest first.
func (r *repositoryImpl) PurgeRead(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	oldest := r.db.Model(&models.Notification{}).
		Select("id").
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Order("created_at").
		Limit(limit)
	res := r.db.WithContext(ctx).
		Where("id IN (?)", oldest).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
