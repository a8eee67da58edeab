// Package assemble is the application façade. It composes the template
// engine, the task runner, the session store and the middleware stack into
// a static-site build tool.
package assemble

import (
	"io"
	"os"
	"sync"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/eventstore"
	"git.home.luguber.info/inful/assemble/internal/metrics"
	"git.home.luguber.info/inful/assemble/internal/session"
	"git.home.luguber.info/inful/assemble/internal/stack"
	"git.home.luguber.info/inful/assemble/internal/task"
	"git.home.luguber.info/inful/assemble/internal/template"
)

// App is one assemble instance. Instances share nothing.
type App struct {
	options  config.Options
	engine   template.Engine
	runner   *task.Runner
	session  *session.Store
	stack    *stack.Stack
	router   *stack.Router
	settings *config.Settings
	stderr   io.Writer
	recorder metrics.Recorder
	history  eventstore.Store

	// watchRuns tracks runs started by WatchTasks.
	watchRuns sync.WaitGroup

	newEngine   func() template.Engine
	concurrency int
	initial     map[string]bool
	with        []Option
}

// Option configures an App.
type Option func(*App)

// WithEngine supplies the template engine factory. Each instance, including
// those returned by Init, gets a fresh engine.
func WithEngine(newEngine func() template.Engine) Option {
	return func(a *App) { a.newEngine = newEngine }
}

// WithStderr sets the writer used by Diff. Default: os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(a *App) { a.stderr = w }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithHistory records task-run events in store.
func WithHistory(store eventstore.Store) Option {
	return func(a *App) { a.history = store }
}

// WithConcurrency bounds the number of tasks running at once.
func WithConcurrency(n int) Option {
	return func(a *App) { a.concurrency = n }
}

// WithSettings seeds settings, applied after the defaults.
func WithSettings(settings map[string]bool) Option {
	return func(a *App) { a.initial = settings }
}

// New creates an instance with the given instance options.
func New(opts config.Options, with ...Option) *App {
	a := &App{
		options:  opts.Clone(),
		stderr:   os.Stderr,
		recorder: metrics.NoopRecorder{},
		newEngine: func() template.Engine {
			return template.New()
		},
		with: with,
	}
	for _, opt := range with {
		opt(a)
	}
	initialize(a)
	return a
}

// Init returns a fresh instance with the same options. Nothing registered on
// a (tasks, views, routes, data) carries over.
func (a *App) Init() *App {
	return New(a.options, a.with...)
}

// Engine returns the template engine.
func (a *App) Engine() template.Engine { return a.engine }

// Runner returns the task runner.
func (a *App) Runner() *task.Runner { return a.runner }

// Session returns the session store.
func (a *App) Session() *session.Store { return a.session }

// Stack returns the middleware stack.
func (a *App) Stack() *stack.Stack { return a.stack }

// Options returns a copy of the instance options.
func (a *App) Options() config.Options { return a.options.Clone() }

// Enable turns a setting on.
func (a *App) Enable(name string) { a.settings.Enable(name) }

// Disable turns a setting off.
func (a *App) Disable(name string) { a.settings.Disable(name) }

// Enabled reports whether a setting is on.
func (a *App) Enabled(name string) bool { return a.settings.Enabled(name) }

// mergeOptions merges engine defaults, instance options and call options.
func (a *App) mergeOptions(call config.Options) (config.Options, error) {
	return config.MergeOptions(a.engine.DefaultOptions(), a.options, call)
}

func (a *App) minimal(opts config.Options) bool {
	return opts.Minimal || a.settings.Enabled(config.SettingMinimalConfig)
}
