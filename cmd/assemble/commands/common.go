package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assemble/internal/assemble"
	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/eventstore"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/metrics"
)

// Global carries the process streams to subcommands.
type Global struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewGlobal returns a Global bound to the process streams.
func NewGlobal() *Global {
	return &Global{Stdout: os.Stdout, Stderr: os.Stderr}
}

// CLI definition & global flags.
type CLI struct {
	Config    string `short:"c" help:"Assemblefile path" default:"assemblefile.yaml"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`
	LogFormat string `name:"log-format" help:"Log format (text or json); overrides the assemblefile"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run tasks (default task when none are given)"`
	Watch   WatchCmd   `cmd:"" help:"Run tasks on file changes and schedules until interrupted"`
	Diff    DiffCmd    `cmd:"" help:"Print a colored diff of two files, the engine env or the global data"`
	Init    InitCmd    `cmd:"" help:"Write a starter assemblefile"`
	History HistoryCmd `cmd:"" help:"Show recorded task runs"`
	Version VersionCmd `cmd:"" help:"Show version and exit"`
}

// AfterApply runs after flag parsing; setup logging from flags. Commands that
// load an assemblefile reconfigure it with the file's logging section.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.configureLogging(config.LoggingConfig{})
	return nil
}

// configureLogging installs the default logger. Flags win over the file.
func (c *CLI) configureLogging(lc config.LoggingConfig) {
	level := config.NormalizeLogLevel(string(lc.Level))
	format := config.NormalizeLogFormat(string(lc.Format))
	if c.Verbose {
		level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, level, format))
}

// environment is an App built from the assemblefile together with the
// resources it owns.
type environment struct {
	app      *assemble.App
	cfg      *config.Config
	registry *prometheus.Registry
	history  *eventstore.SQLiteStore
}

func (e *environment) Close() error {
	if e.history == nil {
		return nil
	}
	return e.history.Close()
}

// loadEnvironment loads the assemblefile and wires history and metrics
// into a new App.
func loadEnvironment(ctx context.Context, g *Global, root *CLI) (*environment, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	root.configureLogging(cfg.Logging)

	env := &environment{cfg: cfg}
	opts := []assemble.Option{assemble.WithStderr(g.Stderr)}
	if cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(resolve(cfg.Dir, cfg.History.Path))
		if err != nil {
			return nil, err
		}
		env.history = store
		opts = append(opts, assemble.WithHistory(store))
	}
	if cfg.Metrics.Enabled {
		env.registry = prometheus.NewRegistry()
		opts = append(opts, assemble.WithRecorder(metrics.NewPrometheusRecorder(env.registry)))
	}

	app, err := assemble.FromConfig(ctx, cfg, opts...)
	if err != nil {
		return nil, errors.Join(err, env.Close())
	}
	env.app = app
	slog.Debug("Loaded assemblefile", logfields.Path(root.Config), logfields.Tasks(cfg.TaskNames()))
	return env, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
