package eventstore

import (
	"encoding/json"
	"time"

	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

// Event type names.
const (
	TypeRunStarted    = "RunStarted"
	TypeRunCompleted  = "RunCompleted"
	TypeTaskStarted   = "TaskStarted"
	TypeTaskCompleted = "TaskCompleted"
	TypeTaskFailed    = "TaskFailed"
)

// RunStartedPayload is the payload of RunStarted.
type RunStartedPayload struct {
	Tasks   []string `json:"tasks"`
	Trigger string   `json:"trigger,omitempty"` // cli, watch or schedule
}

// RunCompletedPayload is the payload of RunCompleted.
type RunCompletedPayload struct {
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// TaskCompletedPayload is the payload of TaskCompleted.
type TaskCompletedPayload struct {
	DurationMS int64 `json:"duration_ms"`
	Files      int   `json:"files,omitempty"`
}

// TaskFailedPayload is the payload of TaskFailed.
type TaskFailedPayload struct {
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error"`
}

func newEvent(runID, task, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, aerrors.InternalError("failed to marshal "+eventType+" payload", err).
			WithContext("run_id", runID)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventTask:      task,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, tasks []string, trigger string) (*BaseEvent, error) {
	return newEvent(runID, "", TypeRunStarted, RunStartedPayload{Tasks: tasks, Trigger: trigger})
}

// NewRunCompleted creates a RunCompleted event. A nil runErr marks success.
func NewRunCompleted(runID string, d time.Duration, runErr error) (*BaseEvent, error) {
	p := RunCompletedPayload{DurationMS: d.Milliseconds()}
	if runErr != nil {
		p.Error = runErr.Error()
	}
	return newEvent(runID, "", TypeRunCompleted, p)
}

// NewTaskStarted creates a TaskStarted event.
func NewTaskStarted(runID, task string) (*BaseEvent, error) {
	return newEvent(runID, task, TypeTaskStarted, struct{}{})
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(runID, task string, d time.Duration, files int) (*BaseEvent, error) {
	return newEvent(runID, task, TypeTaskCompleted, TaskCompletedPayload{DurationMS: d.Milliseconds(), Files: files})
}

// NewTaskFailed creates a TaskFailed event.
func NewTaskFailed(runID, task string, d time.Duration, taskErr error) (*BaseEvent, error) {
	return newEvent(runID, task, TypeTaskFailed, TaskFailedPayload{DurationMS: d.Milliseconds(), Error: taskErr.Error()})
}
