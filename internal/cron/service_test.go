package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired || f.held {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(failure, success),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected failure of job fail, got %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job once, got success=%d fail=%d", success.runs, failure.runs)
	}
	if lock.acquired {
		t.Fatal("lock was not released")
	}
}

func TestServiceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	job := &testJob{name: "order-expiry"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Metrics:  cronMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while lock was held")
	}
	count, err := testutil.GatherAndCount(reg, "tradedesk_cron_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one skipped series, got %d", count)
	}
}

func TestNewServiceRejectsBadSchedule(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Schedule: "every tuesday"})
	if err == nil {
		t.Fatal("expected schedule parse error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Schedule: "*/15 * * * *"}); err != nil {
		t.Fatalf("standard spec rejected: %v", err)
	}
}

func TestServiceRunOnceRunsNamedJob(t *testing.T) {
	expiry := &testJob{name: "order-expiry"}
	cleanup := &testJob{name: "notification-cleanup"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(expiry, cleanup),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunOnce(context.Background(), "order-expiry"); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if expiry.runs != 1 || cleanup.runs != 0 {
		t.Fatalf("expected only order-expiry to run, got expiry=%d cleanup=%d", expiry.runs, cleanup.runs)
	}
	if lock.acquired {
		t.Fatal("lock was not released")
	}
	err = service.RunOnce(context.Background(), "nope")
	if err == nil || !strings.Contains(err.Error(), "order-expiry, notification-cleanup") {
		t.Fatalf("expected unknown job error listing jobs, got %v", err)
	}
}

func TestServiceRunOnceFailsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "stale-inquiry-close"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background(), job.name); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if job.runs != 0 {
		t.Fatal("job ran without the lock")
	}
}

type panickyJob struct{}

func (panickyJob) Name() string { return "panicky" }

func (panickyJob) Run(context.Context) error { panic("nil map write") }

func TestServiceRunCycleSurvivesPanickingJob(t *testing.T) {
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(panickyJob{}, after),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	err = service.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicky: panic: nil map write") {
		t.Fatalf("expected the panic as an error, got %v", err)
	}
	if after.runs != 1 {
		t.Fatal("jobs after a panic must still run")
	}
	if lock.acquired {
		t.Fatal("lock was not released")
	}
}

func TestSchedulerLoggerPairs(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &buf, Level: zerolog.DebugLevel})
	adapter := schedulerLogger{ctx: context.Background(), logg: logg}
	adapter.Info("skip", "entry", 3, "dangling")
	if out := buf.String(); !strings.Contains(out, `"entry":3`) || !strings.Contains(out, "scheduler: skip") {
		t.Fatalf("unexpected log line %s", out)
	}
}
