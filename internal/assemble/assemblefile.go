package assemble

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/observability"
	"git.home.luguber.info/inful/assemble/internal/task"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// FromConfig builds an instance from a loaded assemblefile: global data,
// layouts and partials are loaded eagerly and every declared task is
// registered.
func FromConfig(ctx context.Context, cfg *config.Config, with ...Option) (*App, error) {
	opts := make([]Option, 0, len(with)+1)
	opts = append(opts, WithSettings(cfg.Settings))
	opts = append(opts, with...)
	a := New(cfg.Options, opts...)

	if len(cfg.Data) > 0 {
		if err := a.DataFiles(ctx, cfg.Data...); err != nil {
			return nil, err
		}
	}
	if len(cfg.Layouts) > 0 {
		if _, err := a.Layouts(ctx, cfg.Layouts...); err != nil {
			return nil, err
		}
	}
	if len(cfg.Partials) > 0 {
		if _, err := a.Partials(ctx, cfg.Partials...); err != nil {
			return nil, err
		}
	}
	for _, tc := range cfg.Tasks {
		if err := a.Task(tc.Name, tc.Deps, a.taskFunc(tc)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// taskFunc returns the body of a declared task. Tasks without src or copy
// only group their deps.
func (a *App) taskFunc(tc config.TaskConfig) task.Func {
	switch {
	case len(tc.Src) > 0:
		return a.Pipeline(func(ctx context.Context) vfs.Stream {
			return a.Src(ctx, tc.Src, tc.Options).Pipe(a.Dest(ctx, tc.Dest, tc.Options))
		})
	case tc.Copy != nil:
		return a.Pipeline(func(ctx context.Context) vfs.Stream {
			return a.Copy(ctx, tc.Copy.Src, tc.Copy.Dest, tc.Options)
		})
	default:
		return nil
	}
}

// WatchAll starts one watcher per watch declaration. On error the watchers
// already started are closed.
func (a *App) WatchAll(ctx context.Context, watches []config.WatchConfig) ([]*vfs.Watcher, error) {
	watchers := make([]*vfs.Watcher, 0, len(watches))
	for _, wc := range watches {
		w, err := a.WatchTasks(ctx, wc.Patterns, config.Options{}, wc.Tasks...)
		if err != nil {
			return nil, errors.Join(err, closeAll(watchers))
		}
		observability.InfoContext(ctx, "Watching files", logfields.Pattern(wc.Patterns), logfields.Tasks(wc.Tasks))
		watchers = append(watchers, w)
	}
	return watchers, nil
}

func closeAll(watchers []*vfs.Watcher) error {
	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
