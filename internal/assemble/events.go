package assemble

import (
	"context"
	"time"

	"git.home.luguber.info/inful/assemble/internal/eventstore"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/metrics"
	"git.home.luguber.info/inful/assemble/internal/observability"
	"git.home.luguber.info/inful/assemble/internal/task"
)

// Run triggers recorded in history.
const (
	TriggerCLI      = "cli"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

type triggerKey struct{}

// WithTrigger records what started the runs made with ctx.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if s, ok := ctx.Value(triggerKey{}).(string); ok {
		return s
	}
	return TriggerCLI
}

// onEvent logs runner events and records run-level history.
func (a *App) onEvent(ctx context.Context, e task.Event) {
	switch e.Type {
	case task.EventRunStart:
		observability.InfoContext(ctx, "Run started", logfields.Tasks(e.Tasks))
		a.appendHistory(ctx, func() (*eventstore.BaseEvent, error) {
			return eventstore.NewRunStarted(e.RunID, e.Tasks, triggerFrom(ctx))
		})
	case task.EventRunStop:
		if e.Err != nil {
			observability.ErrorContext(ctx, "Run failed", logfields.Tasks(e.Tasks), logfields.Duration(e.Duration), logfields.Error(e.Err))
		} else {
			observability.InfoContext(ctx, "Run finished", logfields.Tasks(e.Tasks), logfields.Duration(e.Duration))
		}
		a.appendHistory(ctx, func() (*eventstore.BaseEvent, error) {
			return eventstore.NewRunCompleted(e.RunID, e.Duration, e.Err)
		})
	case task.EventTaskStart:
		observability.InfoContext(ctx, "Starting task", logfields.Task(e.Task))
		a.appendHistory(ctx, func() (*eventstore.BaseEvent, error) {
			return eventstore.NewTaskStarted(e.RunID, e.Task)
		})
	case task.EventTaskStop:
		observability.InfoContext(ctx, "Finished task", logfields.Task(e.Task), logfields.Duration(e.Duration))
	case task.EventTaskErr:
		observability.ErrorContext(ctx, "Task failed", logfields.Task(e.Task), logfields.Duration(e.Duration), logfields.Error(e.Err))
	case task.EventTaskSkip:
		observability.WarnContext(ctx, "Task skipped", logfields.Task(e.Task), logfields.Error(e.Err))
		a.recorder.IncTaskResult(e.Task, metrics.ResultSkipped)
	}
}

func (a *App) recordTaskHistory(ctx context.Context, name string, d time.Duration, files int, err error) {
	runID := observability.GetContext(ctx).RunID
	a.appendHistory(ctx, func() (*eventstore.BaseEvent, error) {
		if err != nil {
			return eventstore.NewTaskFailed(runID, name, d, err)
		}
		return eventstore.NewTaskCompleted(runID, name, d, files)
	})
}

// appendHistory stores an event when history is configured. Failures are
// logged and never fail the run.
func (a *App) appendHistory(ctx context.Context, build func() (*eventstore.BaseEvent, error)) {
	if a.history == nil {
		return
	}
	e, err := build()
	if err == nil {
		if sid := observability.GetContext(ctx).SessionID; sid != "" {
			e.EventMetadata = map[string]string{"session_id": sid}
		}
		err = a.history.Append(context.WithoutCancel(ctx), e)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to record run history", logfields.Error(err))
	}
}
