// Package eventstore persists task-run events in SQLite and projects them
// into run summaries.
package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// TaskResult summarizes one task within a run.
type TaskResult struct {
	Task     string        `json:"task"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Files    int           `json:"files,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunSummary is a read model of one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Tasks       []string      `json:"tasks"`
	Trigger     string        `json:"trigger,omitempty"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`
	Results     []TaskResult  `json:"results,omitempty"`
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from events stored in the event store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // newest first
	maxSize int
}

// NewRunHistoryProjection creates a new projection backed by the given store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from events in [since, now].
func (p *RunHistoryProjection) Rebuild(ctx context.Context, since time.Time) error {
	events, err := p.store.GetRange(ctx, since, time.Now().Add(time.Minute))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	p.history = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

// Apply folds a single event into the projection.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	switch e.Type() {
	case TypeRunStarted:
		var payload RunStartedPayload
		_ = json.Unmarshal(e.Payload(), &payload)
		s := &RunSummary{
			RunID:     e.RunID(),
			Tasks:     payload.Tasks,
			Trigger:   payload.Trigger,
			Status:    RunStatusRunning,
			StartedAt: e.Timestamp(),
		}
		p.runs[s.RunID] = s
		p.history = slices.Insert(p.history, 0, s)
		if len(p.history) > p.maxSize {
			evicted := p.history[p.maxSize:]
			for _, old := range evicted {
				delete(p.runs, old.RunID)
			}
			p.history = p.history[:p.maxSize]
		}
	case TypeRunCompleted:
		s, ok := p.runs[e.RunID()]
		if !ok {
			return
		}
		var payload RunCompletedPayload
		_ = json.Unmarshal(e.Payload(), &payload)
		ts := e.Timestamp()
		s.CompletedAt = &ts
		s.Duration = time.Duration(payload.DurationMS) * time.Millisecond
		s.Error = payload.Error
		s.Status = RunStatusCompleted
		if payload.Error != "" {
			s.Status = RunStatusFailed
		}
	case TypeTaskCompleted:
		s, ok := p.runs[e.RunID()]
		if !ok {
			return
		}
		var payload TaskCompletedPayload
		_ = json.Unmarshal(e.Payload(), &payload)
		s.Results = append(s.Results, TaskResult{
			Task:     e.Task(),
			Status:   RunStatusCompleted,
			Duration: time.Duration(payload.DurationMS) * time.Millisecond,
			Files:    payload.Files,
		})
	case TypeTaskFailed:
		s, ok := p.runs[e.RunID()]
		if !ok {
			return
		}
		var payload TaskFailedPayload
		_ = json.Unmarshal(e.Payload(), &payload)
		s.Results = append(s.Results, TaskResult{
			Task:     e.Task(),
			Status:   RunStatusFailed,
			Duration: time.Duration(payload.DurationMS) * time.Millisecond,
			Error:    payload.Error,
		})
	}
}

// Get returns a copy of the summary for runID.
func (p *RunHistoryProjection) Get(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// List returns up to limit summaries, newest first. limit <= 0 returns all.
func (p *RunHistoryProjection) List(limit int) []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := len(p.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*RunSummary, 0, n)
	for _, s := range p.history[:n] {
		out = append(out, s.clone())
	}
	return out
}

func (s *RunSummary) clone() *RunSummary {
	c := *s
	c.Tasks = slices.Clone(s.Tasks)
	c.Results = slices.Clone(s.Results)
	return &c
}
