package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultUnpaidOrderTTL = 10 * 24 * time.Hour

// OrderExpiryJobParams configure the unpaid order sweep.
type OrderExpiryJobParams struct {
	Logger  *logger.Logger
	Reader  unpaidOrderReader
	Expirer orderExpirer
	TTL     time.Duration
}

type unpaidOrderReader interface {
	ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

// NewOrderExpiryJob builds the job that cancels orders left unpaid past TTL
// and returns their stock.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("unpaid order reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	return &orderExpiryJob{
		logg:    params.Logger,
		reader:  params.Reader,
		expirer: params.Expirer,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg    *logger.Logger
	reader  unpaidOrderReader
	expirer orderExpirer
	ttl     time.Duration
	now     func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run keeps going past individual failures so one bad order cannot pin the
// rest in PENDING_PAYMENT.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	orders, err := j.reader.ListUnpaidBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}
	var errs error
	expired := 0
	for _, order := range orders {
		ok, err := j.expirer.Expire(ctx, order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.OrderNo, err))
			continue
		}
		if ok {
			expired++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(orders),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "unpaid order sweep complete")
	return errs
}
