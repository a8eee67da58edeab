// Package schedule runs tasks periodically on intervals or cron
// expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/retry"
)

// RunFunc runs a set of tasks.
type RunFunc func(ctx context.Context, tasks []string) error

// JobOption configures a scheduled job.
type JobOption func(*job)

type job struct {
	name   string
	tasks  []string
	policy retry.Policy
}

// WithRetry retries a failed run according to p.
func WithRetry(p retry.Policy) JobOption {
	return func(j *job) { j.policy = p }
}

// Scheduler wraps gocron scheduler for managing periodic task runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	run       RunFunc

	mu  sync.RWMutex
	ctx context.Context
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(run RunFunc) (*Scheduler, error) {
	if run == nil {
		return nil, errors.New("schedule: run function is required")
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, run: run, ctx: context.Background()}, nil
}

// Apply schedules every entry of cfgs.
func (s *Scheduler) Apply(cfgs []config.ScheduleConfig) error {
	for _, c := range cfgs {
		var err error
		if c.Cron != "" {
			_, err = s.ScheduleCron(c.Name, c.Cron, c.Tasks, WithRetry(retry.FromConfig(c.Retry)))
		} else {
			var interval time.Duration
			if interval, err = c.Interval(); err == nil {
				_, err = s.ScheduleEvery(c.Name, interval, c.Tasks, WithRetry(retry.FromConfig(c.Retry)))
			}
		}
		if err != nil {
			return fmt.Errorf("schedule %q: %w", c.Name, err)
		}
	}
	return nil
}

// ScheduleEvery runs tasks every interval. Returns the job ID.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, tasks []string, opts ...JobOption) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.schedule(name, gocron.DurationJob(interval), tasks, opts)
}

// ScheduleCron runs tasks on a five-field cron expression. Returns the job ID.
func (s *Scheduler) ScheduleCron(name, expr string, tasks []string, opts ...JobOption) (string, error) {
	return s.schedule(name, gocron.CronJob(expr, false), tasks, opts)
}

func (s *Scheduler) schedule(name string, def gocron.JobDefinition, tasks []string, opts []JobOption) (string, error) {
	if len(tasks) == 0 {
		return "", errors.New("at least one task is required")
	}
	j := &job{name: name, tasks: slices.Clone(tasks), policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(j)
	}
	created, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.execute, j),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create scheduled job: %w", err)
	}
	return created.ID().String(), nil
}

// Jobs returns the names of scheduled jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	slices.Sort(names)
	return names
}

// Start begins the scheduler. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	slog.Info("Starting scheduler", logfields.Count(len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// execute is called by gocron to run a scheduled job.
func (s *Scheduler) execute(j *job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	slog.InfoContext(ctx, "Executing scheduled run", logfields.JobID(j.name), logfields.Tasks(j.tasks))
	err := j.policy.Do(ctx, func(ctx context.Context) error {
		return s.run(ctx, j.tasks)
	}, func(n int, delay time.Duration, err error) {
		slog.WarnContext(ctx, "Scheduled run failed, retrying",
			logfields.JobID(j.name), slog.Int("retry", n), logfields.Duration(delay), logfields.Error(err))
	})
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled run failed", logfields.JobID(j.name), logfields.Tasks(j.tasks), logfields.Error(err))
	}
}
