package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/metrics"
	robfig "github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

const defaultSchedule = "@every 1h"

// ErrLockHeld means another worker owns the cron lock right now.
var ErrLockHeld = errors.New("cron lock is held by another instance")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Schedule is a standard cron spec or descriptor such as "@every 1h".
	Schedule string
}

// Service runs every registered job once per scheduled tick. Only the worker
// holding the lock does the work; the others record the tick as skipped.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule robfig.Schedule
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	spec := params.Schedule
	if spec == "" {
		spec = defaultSchedule
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", spec, err)
	}
	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s, nil
}

// Run executes one cycle immediately, then follows the schedule until ctx is
// canceled. A tick that arrives while the previous cycle is still running is
// dropped rather than queued.
func (s *Service) Run(ctx context.Context) error {
	tick := func() {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
	}
	tick()

	adapter := schedulerLogger{ctx: ctx, logg: s.logg}
	scheduler := robfig.New(
		robfig.WithLocation(time.UTC),
		robfig.WithLogger(adapter),
		robfig.WithChain(robfig.Recover(adapter), robfig.SkipIfStillRunning(adapter)),
	)
	scheduler.Schedule(s.schedule, robfig.FuncJob(tick))
	scheduler.Start()

	<-ctx.Done()
	s.logg.Info(ctx, "cron service stopping")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// RunOnce runs a single named job under the same lock and exits. It is the
// manual trigger behind the worker's --job flag.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown cron job %q (registered: %s)", name, strings.Join(s.registry.Names(), ", "))
	}
	return s.withLock(ctx, func() error { return s.runJob(ctx, job) }, func() error {
		s.metrics.IncSkipped(name)
		return ErrLockHeld
	})
}

// runCycle runs every job in registration order. A failing job does not stop
// the ones after it; all failures are returned together.
func (s *Service) runCycle(ctx context.Context) error {
	jobs := s.registry.Jobs()
	return s.withLock(ctx, func() error {
		start := time.Now()
		var errs error
		for _, job := range jobs {
			if err := s.runJob(ctx, job); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
			}
		}
		done := s.logg.WithFields(ctx, map[string]any{
			"jobs":        len(jobs),
			"failed":      len(multierr.Errors(errs)),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		s.logg.Info(done, "scheduled run complete")
		return errs
	}, func() error {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		for _, job := range jobs {
			s.metrics.IncSkipped(job.Name())
		}
		return nil
	})
}

// withLock calls fn while holding the lock, or busy when someone else has it.
func (s *Service) withLock(ctx context.Context, fn, busy func() error) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		return busy()
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()
	return fn()
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := runGuarded(jobCtx, job)
	elapsed := time.Since(start)

	s.metrics.ObserveDuration(name, elapsed)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(jobCtx, "job completed")
	return nil
}

// runGuarded turns a panic inside a job into an error so the cycle moves on.
func runGuarded(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job.Run(ctx)
}

// schedulerLogger lets robfig report through the service logger.
type schedulerLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l schedulerLogger) Info(msg string, keysAndValues ...any) {
	l.logg.Debug(l.withPairs(keysAndValues), "scheduler: "+msg)
}

func (l schedulerLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logg.Error(l.withPairs(keysAndValues), "scheduler: "+msg, err)
}

func (l schedulerLogger) withPairs(kv []any) context.Context {
	if len(kv) < 2 {
		return l.ctx
	}
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.logg.WithFields(l.ctx, fields)
}
