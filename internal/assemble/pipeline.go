package assemble

import (
	"context"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/session"
	"git.home.luguber.info/inful/assemble/internal/stack"
	"git.home.luguber.info/inful/assemble/internal/task"
	"git.home.luguber.info/inful/assemble/internal/template"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// Src returns the files matching patterns, processed by the src stack
// unless minimal config is enabled or opts.Minimal is set.
//
//	app.Src(ctx, []string{"src/*.md"}, config.Options{Layout: "default"}).
//		Pipe(app.Dest(ctx, "dist", config.Options{})).
//		Drain(ctx)
func (a *App) Src(ctx context.Context, patterns []string, opts config.Options) vfs.Stream {
	merged, err := a.mergeOptions(opts)
	if err != nil {
		return failed(err)
	}
	src := vfs.Src(patterns, srcOptions(merged))
	if a.minimal(merged) {
		return src
	}
	return src.Pipe(a.stack.Src(ctx, a.params(ctx, merged, patterns)))
}

// Dest returns a transform writing files under dir, preceded by the dest
// stack unless minimal.
func (a *App) Dest(ctx context.Context, dir string, opts config.Options) vfs.Transform {
	merged, err := a.mergeOptions(opts)
	if err != nil {
		return func(vfs.Stream) vfs.Stream { return failed(err) }
	}
	write := vfs.Chain(vfs.Dest(dir, destOptions(merged)), a.countWritten(ctx))
	if a.minimal(merged) {
		return write
	}
	return vfs.Chain(a.stack.Dest(ctx, a.params(ctx, merged, []string{dir})), write)
}

// Copy copies files matching patterns to dir without any middleware.
func (a *App) Copy(ctx context.Context, patterns []string, dir string, opts config.Options) vfs.Stream {
	merged, err := a.mergeOptions(opts)
	if err != nil {
		return failed(err)
	}
	return vfs.Src(patterns, srcOptions(merged)).
		Pipe(vfs.Dest(dir, destOptions(merged)), a.countWritten(ctx))
}

// Pipeline adapts a stream-producing function to a task body that completes
// once the stream is drained.
func (a *App) Pipeline(fn func(ctx context.Context) vfs.Stream) task.Func {
	return func(ctx context.Context) error {
		return fn(ctx).Drain(ctx)
	}
}

func (a *App) params(ctx context.Context, opts config.Options, patterns []string) stack.Params {
	return stack.Params{
		Engine:     a.engine,
		Options:    opts,
		Settings:   a.settings,
		Router:     a.router,
		Collection: a.collection(ctx),
		Patterns:   patterns,
	}
}

// collection returns the collection for the active task, creating the view
// type on first use.
func (a *App) collection(ctx context.Context) *template.Collection {
	typ := a.viewType(ctx)
	if typ == template.TypePage {
		return a.Files(ctx)
	}
	return a.engine.Create(typ, typ+"s")
}

// countWritten counts files leaving vfs.Dest for the active task.
func (a *App) countWritten(ctx context.Context) vfs.Transform {
	return vfs.Map(func(f *vfs.File) (*vfs.File, error) {
		name := a.session.GetString(ctx, session.KeyTaskName)
		a.recorder.AddFiles(name, 1)
		if c, ok := a.session.Get(ctx, keyFilesWritten).(*counter); ok {
			c.add(1)
		}
		return f, nil
	})
}

func srcOptions(o config.Options) vfs.SrcOptions {
	return vfs.SrcOptions{Cwd: o.Cwd, Base: o.Base, AllowEmpty: o.AllowEmpty, SkipRead: !o.ReadContents()}
}

func destOptions(o config.Options) vfs.DestOptions {
	return vfs.DestOptions{Cwd: o.Cwd, Overwrite: o.Overwrite}
}

func failed(err error) vfs.Stream {
	return func(yield func(*vfs.File, error) bool) {
		yield(nil, err)
	}
}
