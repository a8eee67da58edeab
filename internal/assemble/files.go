package assemble

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assemble/internal/diff"
	"git.home.luguber.info/inful/assemble/internal/session"
	"git.home.luguber.info/inful/assemble/internal/template"
)

// taskViewPrefix prefixes the view type created for each task.
const taskViewPrefix = "__task__"

func (a *App) viewType(ctx context.Context) string {
	if name := a.session.GetString(ctx, session.KeyTaskName); name != "" {
		return taskViewPrefix + name
	}
	return template.TypePage
}

// Files returns the view collection of the task active in ctx, or the page
// collection outside any task. It returns nil when the engine has no such
// collection yet.
func (a *App) Files(ctx context.Context) *template.Collection {
	plural, ok := a.engine.Inflections()[a.viewType(ctx)]
	if !ok {
		return nil
	}
	return a.engine.Views()[plural]
}

// Diff writes a colored diff of a and b to the configured error writer. A nil
// a defaults to the engine environment and a nil b to the global data.
func (a *App) Diff(x, y any, method diff.Method) {
	if x == nil {
		x = a.engine.Env()
	}
	if y == nil {
		y = a.engine.Data()
	}
	diffs, err := diff.Compute(x, y, method)
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "diff: %v\n", err)
		return
	}
	diff.NewPrinter(a.stderr).Print(diffs)
}
