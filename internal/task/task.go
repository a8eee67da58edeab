// Package task is the task collaborator: a registry of named tasks with
// dependencies and a runner executing them concurrently in dependency order.
package task

import (
	"context"
	"time"
)

// Func is a task body.
type Func func(ctx context.Context) error

// Task is a registered task. A nil Fn makes the task an alias for its deps.
type Task struct {
	Name string
	Deps []string
	Fn   Func
}

// ExecFunc executes one task.
type ExecFunc func(ctx context.Context, t *Task) error

// ExecHook wraps task execution. It must call next to run the task.
type ExecHook func(ctx context.Context, t *Task, next ExecFunc) error

// EventType names runner lifecycle events.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventRunStop   EventType = "run_stop"
	EventTaskStart EventType = "task_start"
	EventTaskStop  EventType = "task_stop"
	EventTaskErr   EventType = "task_err"
	EventTaskSkip  EventType = "task_skip"
)

// Event describes one lifecycle step.
type Event struct {
	Type  EventType
	RunID string
	// Task is empty for run events.
	Task string
	// Tasks lists the requested tasks of a run.
	Tasks    []string
	Duration time.Duration
	Err      error
}

// Listener receives events synchronously from the goroutine that produced
// them.
type Listener func(ctx context.Context, e Event)
