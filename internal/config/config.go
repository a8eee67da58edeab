package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	aerrors "git.home.luguber.info/inful/assemble/internal/errors"
)

// DefaultFile is the assemblefile name looked up when none is given.
const DefaultFile = "assemblefile.yaml"

// Config is the YAML assemblefile consumed by the CLI.
type Config struct {
	Version   string           `yaml:"version"`
	Options   Options          `yaml:"options,omitempty"`
	Settings  map[string]bool  `yaml:"settings,omitempty"`
	Data      []string         `yaml:"data,omitempty"`
	Layouts   []string         `yaml:"layouts,omitempty"`
	Partials  []string         `yaml:"partials,omitempty"`
	Tasks     []TaskConfig     `yaml:"tasks"`
	Watch     []WatchConfig    `yaml:"watch,omitempty"`
	Schedules []ScheduleConfig `yaml:"schedules,omitempty"`
	History   HistoryConfig    `yaml:"history,omitempty"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	Logging   LoggingConfig    `yaml:"logging,omitempty"`

	// Dir is the directory holding the assemblefile. Set by Load.
	Dir string `yaml:"-"`
}

// TaskConfig declares one task. A task either runs a src→dest pipeline, a
// copy, or nothing (alias of its deps).
type TaskConfig struct {
	Name    string      `yaml:"name"`
	Deps    []string    `yaml:"deps,omitempty"`
	Src     []string    `yaml:"src,omitempty"`
	Dest    string      `yaml:"dest,omitempty"`
	Copy    *CopyConfig `yaml:"copy,omitempty"`
	Options Options     `yaml:"options,omitempty"`
}

// CopyConfig declares a middleware-free copy.
type CopyConfig struct {
	Src  []string `yaml:"src"`
	Dest string   `yaml:"dest"`
}

// WatchConfig triggers Tasks whenever a file matching Patterns changes.
type WatchConfig struct {
	Patterns []string `yaml:"patterns"`
	Tasks    []string `yaml:"tasks"`
}

// ScheduleConfig runs Tasks periodically. Exactly one of Every or Cron is set.
type ScheduleConfig struct {
	Name  string      `yaml:"name,omitempty"`
	Every string      `yaml:"every,omitempty"`
	Cron  string      `yaml:"cron,omitempty"`
	Tasks []string    `yaml:"tasks"`
	Retry RetryConfig `yaml:"retry,omitempty"`
}

// Interval parses Every.
func (s ScheduleConfig) Interval() (time.Duration, error) {
	return time.ParseDuration(s.Every)
}

// HistoryConfig configures the task-run history database. Empty Path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load reads, expands, normalizes, defaults and validates an assemblefile.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)
	loaded, err := loadEnvFiles(dir)
	if err != nil {
		return nil, aerrors.ConfigInvalid(path, err)
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", slog.String("path", f))
	}

	// #nosec G304 -- assemblefile path comes from the CLI flag
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, aerrors.ConfigNotFound(path)
		}
		return nil, aerrors.ConfigInvalid(path, err)
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(raw))))
	if err != nil {
		if _, ok := aerrors.As(err); ok {
			return nil, err
		}
		return nil, aerrors.ConfigInvalid(path, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, aerrors.ConfigInvalid(path, err)
	}
	cfg.Dir = abs
	if cfg.Options.Cwd == "" {
		cfg.Options.Cwd = abs
	}
	return cfg, nil
}

// Parse decodes an assemblefile body and applies normalization, defaults and
// validation. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode assemblefile: %w", err)
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	for i := range c.Tasks {
		c.Tasks[i].Name = strings.TrimSpace(c.Tasks[i].Name)
	}
	if ext := c.Options.Ext; ext != "" && !strings.HasPrefix(ext, ".") {
		c.Options.Ext = "." + ext
	}
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	for i := range c.Schedules {
		if c.Schedules[i].Name == "" {
			c.Schedules[i].Name = fmt.Sprintf("schedule-%d", i+1)
		}
	}
}

// Validate checks structural consistency. Task graph problems (unknown deps,
// cycles) are left to the task runner.
func (c *Config) Validate() error {
	if c.Version != "1" {
		return aerrors.ValidationFailed("version", fmt.Sprintf("unsupported version %q", c.Version))
	}
	seen := make(map[string]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if t.Name == "" {
			return aerrors.ValidationFailed(field+".name", "task name is required")
		}
		if _, dup := seen[t.Name]; dup {
			return aerrors.ValidationFailed(field+".name", fmt.Sprintf("duplicate task %q", t.Name))
		}
		seen[t.Name] = struct{}{}
		if len(t.Src) > 0 && t.Copy != nil {
			return aerrors.ValidationFailed(field, "src and copy are mutually exclusive")
		}
		if len(t.Src) > 0 && t.Dest == "" {
			return aerrors.ValidationFailed(field+".dest", "dest is required with src")
		}
		if t.Copy != nil && (len(t.Copy.Src) == 0 || t.Copy.Dest == "") {
			return aerrors.ValidationFailed(field+".copy", "copy needs src and dest")
		}
	}
	for i, w := range c.Watch {
		field := fmt.Sprintf("watch[%d]", i)
		if len(w.Patterns) == 0 {
			return aerrors.ValidationFailed(field+".patterns", "at least one pattern is required")
		}
		if len(w.Tasks) == 0 {
			return aerrors.ValidationFailed(field+".tasks", "at least one task is required")
		}
	}
	for i, s := range c.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if (s.Every == "") == (s.Cron == "") {
			return aerrors.ValidationFailed(field, "exactly one of every or cron is required")
		}
		if s.Every != "" {
			d, err := s.Interval()
			if err != nil || d <= 0 {
				return aerrors.ValidationFailed(field+".every", fmt.Sprintf("invalid interval %q", s.Every))
			}
		}
		if len(s.Tasks) == 0 {
			return aerrors.ValidationFailed(field+".tasks", "at least one task is required")
		}
		if err := s.Retry.validate(); err != nil {
			return aerrors.ValidationFailed(field+".retry", err.Error())
		}
	}
	for name := range c.Settings {
		if name != SettingDefaultRoutes && name != SettingMinimalConfig {
			return aerrors.ValidationFailed("settings", fmt.Sprintf("unknown setting %q", name))
		}
	}
	return nil
}

// TaskNames returns the declared task names in file order.
func (c *Config) TaskNames() []string {
	names := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		names = append(names, t.Name)
	}
	return names
}
