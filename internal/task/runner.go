package task

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
	"git.home.luguber.info/inful/assemble/internal/observability"
)

// ErrDependencyFailed marks tasks that were not run because a dependency
// failed or was skipped.
var ErrDependencyFailed = errors.New("dependency failed")

// Runner is a task registry and executor.
type Runner struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	hook      ExecHook
	listeners []Listener
	limit     int
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecHook installs the execution hook.
func WithExecHook(h ExecHook) Option {
	return func(r *Runner) { r.hook = h }
}

// WithConcurrency bounds the number of tasks running at once. n <= 0 means
// unbounded.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.limit = n }
}

// New creates an empty Runner.
func New(opts ...Option) *Runner {
	r := &Runner{tasks: make(map[string]*Task)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a task. Names are unique.
func (r *Runner) Add(name string, deps []string, fn Func) error {
	if name == "" {
		return aerrors.ValidationFailed("task", "task name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return aerrors.DuplicateTask(name)
	}
	r.tasks[name] = &Task{Name: name, Deps: slices.Clone(deps), Fn: fn}
	return nil
}

// Lookup returns the task registered under name.
func (r *Runner) Lookup(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns the registered task names in sorted order.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tasks))
}

// OnEvent registers a listener.
func (r *Runner) OnEvent(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Runner) emit(ctx context.Context, e Event) {
	r.mu.RLock()
	listeners := slices.Clone(r.listeners)
	r.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, e)
	}
}

// Start runs the named tasks and their dependencies. Dependencies finish
// before dependents start, each task runs at most once, and independent
// tasks run concurrently. A failing task prevents its dependents from
// running without stopping unrelated tasks. Task errors are returned as is;
// several are joined.
func (r *Runner) Start(ctx context.Context, names ...string) error {
	order, err := r.resolve(names)
	if err != nil {
		return err
	}

	runID := observability.GetContext(ctx).RunID
	if runID == "" {
		runID = uuid.NewString()
		ctx = observability.WithRunID(ctx, runID)
	}

	started := time.Now()
	r.emit(ctx, Event{Type: EventRunStart, RunID: runID, Tasks: slices.Clone(names)})
	err = r.execute(ctx, runID, order)
	r.emit(ctx, Event{Type: EventRunStop, RunID: runID, Tasks: slices.Clone(names), Duration: time.Since(started), Err: err})
	return err
}

type node struct {
	task *Task
	done chan struct{}
	err  error
}

func (r *Runner) execute(ctx context.Context, runID string, order []*Task) error {
	nodes := make(map[string]*node, len(order))
	for _, t := range order {
		nodes[t.Name] = &node{task: t, done: make(chan struct{})}
	}

	var (
		mu       sync.Mutex
		failures []error
		canceled error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, t := range order {
		n := nodes[t.Name]
		g.Go(func() error {
			defer close(n.done)
			for _, dep := range t.Deps {
				d := nodes[dep]
				<-d.done
				if d.err != nil {
					n.err = fmt.Errorf("%w: %s", ErrDependencyFailed, dep)
					r.emit(ctx, Event{Type: EventTaskSkip, RunID: runID, Task: t.Name, Err: n.err})
					return nil
				}
			}
			if err := ctx.Err(); err != nil {
				n.err = err
				mu.Lock()
				canceled = err
				mu.Unlock()
				r.emit(ctx, Event{Type: EventTaskSkip, RunID: runID, Task: t.Name, Err: err})
				return nil
			}

			start := time.Now()
			r.emit(ctx, Event{Type: EventTaskStart, RunID: runID, Task: t.Name})
			n.err = r.run(ctx, t)
			if n.err != nil {
				record(n.err)
				r.emit(ctx, Event{Type: EventTaskErr, RunID: runID, Task: t.Name, Duration: time.Since(start), Err: n.err})
				return nil
			}
			r.emit(ctx, Event{Type: EventTaskStop, RunID: runID, Task: t.Name, Duration: time.Since(start)})
			return nil
		})
	}
	_ = g.Wait()

	switch len(failures) {
	case 0:
		return canceled
	case 1:
		return failures[0]
	default:
		return errors.Join(failures...)
	}
}

func (r *Runner) run(ctx context.Context, t *Task) error {
	r.mu.RLock()
	hook := r.hook
	r.mu.RUnlock()
	if hook == nil {
		return invoke(ctx, t)
	}
	return hook(ctx, t, invoke)
}

// invoke is the default execution: it calls the body, converting panics to
// errors.
func invoke(ctx context.Context, t *Task) (err error) {
	if t.Fn == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %q panicked: %v", t.Name, rec)
		}
	}()
	return t.Fn(ctx)
}

// resolve returns the requested tasks and their dependencies with every
// task after its dependencies.
func (r *Runner) resolve(names []string) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int)
	var order []*Task
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			i := slices.Index(stack, name)
			return aerrors.TaskCycle(append(slices.Clone(stack[i:]), name))
		}
		t, ok := r.tasks[name]
		if !ok {
			return aerrors.TaskNotFound(name)
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range t.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = visited
		order = append(order, t)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
