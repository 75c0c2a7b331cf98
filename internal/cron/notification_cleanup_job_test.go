package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

// backlogPurger hands out rows from a fixed backlog, limit at a time.
type backlogPurger struct {
	backlog int64
	cutoffs []time.Time
	limits  []int
	failOn  int
	cancel  context.CancelFunc
}

func (p *backlogPurger) PurgeRead(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	p.limits = append(p.limits, limit)
	if p.failOn == len(p.cutoffs) {
		return 0, errors.New("statement timeout")
	}
	if p.cancel != nil {
		p.cancel()
	}
	n := min(p.backlog, int64(limit))
	p.backlog -= n
	return n, nil
}

func cleanupJob(t *testing.T, purger *backlogPurger, params NotificationCleanupJobParams) *notificationCleanupJob {
	t.Helper()
	params.Logger = logger.Nop()
	params.Purger = purger
	job, err := NewNotificationCleanupJob(params)
	require.NoError(t, err)
	return job.(*notificationCleanupJob)
}

func TestNotificationCleanupDrainsBacklogInBatches(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	purger := &backlogPurger{backlog: 25}
	job := cleanupJob(t, purger, NotificationCleanupJobParams{BatchSize: 10})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []int{10, 10, 10}, purger.limits)
	assert.Zero(t, purger.backlog)
	for _, c := range purger.cutoffs {
		assert.Equal(t, now.Add(-defaultNotificationRetention), c)
	}
}

func TestNotificationCleanupExactMultipleProbesOnce(t *testing.T) {
	purger := &backlogPurger{backlog: 20}
	job := cleanupJob(t, purger, NotificationCleanupJobParams{BatchSize: 10})
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, purger.limits, 3, "a full batch is followed by one that comes back empty")
}

func TestNotificationCleanupHonoursConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	purger := &backlogPurger{}
	job := cleanupJob(t, purger, NotificationCleanupJobParams{Retention: 72 * time.Hour})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, purger.cutoffs, 1)
	assert.Equal(t, now.Add(-72*time.Hour), purger.cutoffs[0])
	assert.Equal(t, defaultPurgeBatch, purger.limits[0])
}

func TestNotificationCleanupErrors(t *testing.T) {
	purger := &backlogPurger{backlog: 100, failOn: 2}
	job := cleanupJob(t, purger, NotificationCleanupJobParams{BatchSize: 10})
	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "batch 2")

	ctx, cancel := context.WithCancel(context.Background())
	purger = &backlogPurger{backlog: 100, cancel: cancel}
	job = cleanupJob(t, purger, NotificationCleanupJobParams{BatchSize: 10})
	err = job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, purger.limits, 1)

	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
