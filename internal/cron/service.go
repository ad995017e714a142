package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/metrics"
)

const defaultInterval = 30 * time.Second

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Location *time.Location
	Now      func() time.Time
}

// Service fires registered jobs on their wall-clock schedules. Fire times
// missed while the worker is down are skipped.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	location *time.Location
	now      func() time.Time
	next     []time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	location := params.Location
	if location == nil {
		location = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		location: location,
		now:      now,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.arm(s.now())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// arm computes the first fire time of every entry after now.
func (s *Service) arm(now time.Time) {
	entries := s.registry.Entries()
	s.next = make([]time.Time, len(entries))
	local := now.In(s.location)
	for i, entry := range entries {
		s.next[i] = entry.Next(local)
		s.logg.Info(s.logg.WithFields(context.Background(), map[string]any{
			"job":      entry.Job.Name(),
			"schedule": entry.Spec,
			"next_run": s.next[i],
		}), "cron.job_armed")
	}
}

// tick runs every entry whose fire time has passed, then re-arms it.
func (s *Service) tick(ctx context.Context, now time.Time) {
	local := now.In(s.location)
	for i, entry := range s.registry.Entries() {
		if i >= len(s.next) || local.Before(s.next[i]) {
			continue
		}
		fire := s.next[i]
		s.next[i] = entry.Next(local)
		s.fire(ctx, entry.Job, fire)
	}
}

func (s *Service) fire(ctx context.Context, job Job, fire time.Time) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job", "fire_time": fire})
	claimed, err := s.lock.Claim(jobCtx, job.Name(), fire)
	if err != nil {
		s.logg.Error(jobCtx, "cron lock failed", err)
		s.metrics.Observe(job.Name(), metrics.JobFailed, 0)
		return
	}
	if !claimed {
		s.logg.Info(jobCtx, "another cron instance owns this run; skipping")
		s.metrics.Observe(job.Name(), metrics.JobSkipped, 0)
		return
	}
	s.runJob(jobCtx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	s.logg.Info(ctx, "job start")
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	ctx = s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		s.metrics.Observe(job.Name(), metrics.JobFailed, duration)
		return
	}
	s.logg.Info(ctx, "job completed")
	s.metrics.Observe(job.Name(), metrics.JobSucceeded, duration)
}

// RunNow executes the named job immediately, bypassing schedule and lock.
func (s *Service) RunNow(ctx context.Context, name string) error {
	for _, entry := range s.registry.Entries() {
		if entry.Job.Name() == name {
			s.runJob(s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"}), entry.Job)
			return nil
		}
	}
	return fmt.Errorf("unknown job %q", name)
}
