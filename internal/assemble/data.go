package assemble

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/observability"
	"git.home.luguber.info/inful/assemble/internal/stack"
	"git.home.luguber.info/inful/assemble/internal/template"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// Data merges data into the engine's global data.
func (a *App) Data(data map[string]any) {
	a.engine.SetData(data)
}

// DataFiles loads YAML or JSON files matching patterns into the global data,
// each keyed by its file stem.
func (a *App) DataFiles(ctx context.Context, patterns ...string) error {
	merged, err := a.mergeOptions(config.Options{})
	if err != nil {
		return err
	}
	opts := srcOptions(merged)
	opts.AllowEmpty = true
	opts.SkipRead = false
	data := make(map[string]any)
	for f, err := range vfs.Src(patterns, opts) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch strings.ToLower(f.Ext()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		var v any
		if err := yaml.Unmarshal(f.Contents, &v); err != nil {
			return fmt.Errorf("data file %s: %w", f.Relative(), err)
		}
		data[f.Stem()] = v
	}
	observability.DebugContext(ctx, "Loaded data files", logfields.Pattern(patterns), logfields.Count(len(data)))
	a.engine.SetData(data)
	return nil
}

// Layouts loads layout templates matching patterns.
func (a *App) Layouts(ctx context.Context, patterns ...string) (int, error) {
	return a.loadViews(ctx, template.TypeLayout, patterns)
}

// Partials loads partial templates matching patterns.
func (a *App) Partials(ctx context.Context, patterns ...string) (int, error) {
	return a.loadViews(ctx, template.TypePartial, patterns)
}

func (a *App) loadViews(ctx context.Context, typ string, patterns []string) (int, error) {
	merged, err := a.mergeOptions(config.Options{})
	if err != nil {
		return 0, err
	}
	n, err := a.engine.Load(ctx, typ, patterns, merged)
	if err != nil {
		return n, fmt.Errorf("load %s views: %w", typ, err)
	}
	observability.DebugContext(ctx, "Loaded views", logfields.Stage(typ), logfields.Count(n))
	return n, nil
}

// Route registers handlers for src files whose relative path matches pattern.
func (a *App) Route(pattern string, handlers ...stack.Handler) error {
	return a.router.Add(pattern, handlers...)
}
