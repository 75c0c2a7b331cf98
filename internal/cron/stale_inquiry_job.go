package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
)

const defaultStaleInquiryAge = 90 * 24 * time.Hour

type StaleInquiryJobParams struct {
	Logger    *logger.Logger
	Inquiries staleInquiryCloser
	MaxAge    time.Duration
}

type staleInquiryCloser interface {
	CloseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewStaleInquiryJob closes PENDING inquiries nobody has touched for MaxAge.
func NewStaleInquiryJob(params StaleInquiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inquiries == nil {
		return nil, fmt.Errorf("inquiry service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleInquiryAge
	}
	return &staleInquiryJob{logg: params.Logger, inquiries: params.Inquiries, maxAge: maxAge}, nil
}

type staleInquiryJob struct {
	logg      *logger.Logger
	inquiries staleInquiryCloser
	maxAge    time.Duration
}

func (j *staleInquiryJob) Name() string { return "stale-inquiry-close" }

func (j *staleInquiryJob) Run(ctx context.Context) error {
	closed, err := j.inquiries.CloseStale(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("close stale inquiries: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"max_age": j.maxAge.String(),
		"closed":  closed,
	}), "stale inquiry sweep complete")
	return nil
}
