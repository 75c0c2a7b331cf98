package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultPurgeBatch            = 500
)

type NotificationCleanupJobParams struct {
	Logger    *logger.Logger
	Purger    readNotificationPurger
	Retention time.Duration
	// BatchSize caps the rows removed per statement.
	BatchSize int
}

type readNotificationPurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NewNotificationCleanupJob prunes read notifications past the retention
// window. Unread ones are never removed.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Purger == nil:
		return nil, fmt.Errorf("notification purger required")
	}
	job := &notificationCleanupJob{
		logg:      params.Logger,
		purger:    params.Purger,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultNotificationRetention
	}
	if job.batch <= 0 {
		job.batch = defaultPurgeBatch
	}
	return job, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	purger    readNotificationPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes in batches until one comes back short, so a large backlog
// never holds one long lock on the table.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("notification cleanup stopped after %d rows: %w", deleted, err)
		}
		n, err := j.purger.PurgeRead(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("notification cleanup batch %d: %w", batches+1, err)
		}
		deleted += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"batches":      batches,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
