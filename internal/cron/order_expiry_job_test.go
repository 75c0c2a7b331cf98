package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/google/uuid"
)

type fakeUnpaidReader struct {
	cutoff time.Time
	orders []models.Order
	err    error
}

func (f *fakeUnpaidReader) ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.cutoff = cutoff
	return f.orders, f.err
}

type fakeExpirer struct {
	results map[uuid.UUID]bool
	errs    map[uuid.UUID]error
	calls   []uuid.UUID
}

func (f *fakeExpirer) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return false, err
	}
	return f.results[id], nil
}

func newOrderExpiryJob(t *testing.T, reader *fakeUnpaidReader, expirer *fakeExpirer) *orderExpiryJob {
	t.Helper()
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.Nop(), Reader: reader, Expirer: expirer})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	return jobIface.(*orderExpiryJob)
}

func TestOrderExpiryJobExpiresEveryCandidate(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	reader := &fakeUnpaidReader{orders: []models.Order{
		{ID: a, OrderNo: "ORD-2026-1"},
		{ID: b, OrderNo: "ORD-2026-2"},
		{ID: c, OrderNo: "ORD-2026-3"},
	}}
	expirer := &fakeExpirer{
		results: map[uuid.UUID]bool{a: true, c: true},
		errs:    map[uuid.UUID]error{b: errors.New("deadlock")},
	}
	job := newOrderExpiryJob(t, reader, expirer)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ORD-2026-2") {
		t.Fatalf("expected failure naming ORD-2026-2, got %v", err)
	}
	if len(expirer.calls) != 3 {
		t.Fatalf("expected all three orders tried, got %d", len(expirer.calls))
	}
	if want := now.Add(-defaultUnpaidOrderTTL); !reader.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, reader.cutoff)
	}
}

func TestOrderExpiryJobQueryFailure(t *testing.T) {
	job := newOrderExpiryJob(t, &fakeUnpaidReader{err: errors.New("boom")}, &fakeExpirer{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
