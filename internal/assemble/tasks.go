package assemble

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/metrics"
	"git.home.luguber.info/inful/assemble/internal/observability"
	"git.home.luguber.info/inful/assemble/internal/session"
	"git.home.luguber.info/inful/assemble/internal/task"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// DefaultTask runs when Run is called without names.
const DefaultTask = "default"

// keyFilesWritten holds the per-task counter of written files.
const keyFilesWritten = "files written"

type counter struct{ n atomic.Int64 }

func (c *counter) add(n int) { c.n.Add(int64(n)) }
func (c *counter) load() int { return int(c.n.Load()) }

// Task registers a task. fn may be nil for a task that only groups deps.
//
//	app.Task("default", []string{"css", "html"}, nil)
func (a *App) Task(name string, deps []string, fn task.Func) error {
	return a.runner.Add(name, deps, fn)
}

// Run runs the named tasks, or DefaultTask when none are given. Task errors
// are returned as produced by the runner.
func (a *App) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = []string{DefaultTask}
	}
	return a.runner.Start(ctx, names...)
}

// runTask is the runner's execution hook: every task body runs inside its
// own session scope with the task name recorded.
func (a *App) runTask(ctx context.Context, t *task.Task, next task.ExecFunc) error {
	return a.session.Run(ctx, func(ctx context.Context) error {
		a.session.Set(ctx, session.KeyTaskName, t.Name)
		files := &counter{}
		a.session.Set(ctx, keyFilesWritten, files)
		ctx = observability.WithTask(ctx, t.Name)
		ctx = observability.WithSessionID(ctx, a.session.ID(ctx))

		start := time.Now()
		err := next(ctx, t)
		a.recordTask(ctx, t.Name, time.Since(start), files.load(), err)
		return err
	})
}

func (a *App) recordTask(ctx context.Context, name string, d time.Duration, files int, err error) {
	a.recorder.ObserveTaskDuration(name, d)
	switch {
	case err == nil:
		a.recorder.IncTaskResult(name, metrics.ResultSuccess)
	case errors.Is(err, context.Canceled):
		a.recorder.IncTaskResult(name, metrics.ResultCanceled)
	default:
		a.recorder.IncTaskResult(name, metrics.ResultFailed)
	}
	a.recordTaskHistory(ctx, name, d, files, err)
}

// Watch calls fn for every change to a file matching patterns.
func (a *App) Watch(ctx context.Context, patterns []string, opts config.Options, fn vfs.ChangeFunc) (*vfs.Watcher, error) {
	merged, err := a.mergeOptions(opts)
	if err != nil {
		return nil, err
	}
	return vfs.Watch(ctx, patterns, vfs.WatchOptions{Cwd: merged.Cwd}, fn)
}

// Wait blocks until every run started by WatchTasks has returned.
func (a *App) Wait() {
	a.watchRuns.Wait()
}

// WatchTasks runs the named tasks on every change to a file matching
// patterns. Each change starts its own run; runs are neither debounced nor
// serialized.
func (a *App) WatchTasks(ctx context.Context, patterns []string, opts config.Options, names ...string) (*vfs.Watcher, error) {
	runCtx := WithTrigger(ctx, TriggerWatch)
	return a.Watch(ctx, patterns, opts, func(c vfs.Change) {
		a.recorder.IncWatchTrigger()
		observability.InfoContext(ctx, "Change detected, running tasks",
			logfields.Path(c.Path), logfields.Op(c.Op.String()), logfields.Tasks(names))
		a.watchRuns.Add(1)
		go func() {
			defer a.watchRuns.Done()
			if err := a.Run(runCtx, names...); err != nil {
				observability.ErrorContext(runCtx, "Watch run failed", logfields.Tasks(names), logfields.Error(err))
			}
		}()
	})
}
