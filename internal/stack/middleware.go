// Package stack builds the middleware stacks run around Src and Dest
// streams. A stack is an ordered list of named steps; each step decorates
// the per-file handler of the step after it.
package stack

import (
	"context"
	"slices"
	"sync"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/template"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// Handler processes one file. Returning a nil file drops it from the stream.
type Handler func(ctx context.Context, f *vfs.File) (*vfs.File, error)

// Middleware wraps a handler.
type Middleware func(next Handler) Handler

// Chain applies middleware to h so that the first middleware runs first.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}

// Params carry everything a step may need for one Src or Dest call.
type Params struct {
	Engine   template.Engine
	Options  config.Options
	Settings *config.Settings
	Router   *Router
	// Collection receives views in the collect step. May be nil.
	Collection *template.Collection
	// Patterns are the Src globs or, for Dest, the destination directory.
	Patterns []string
}

// Factory builds a step's middleware for one call.
type Factory func(p Params) Middleware

type step struct {
	name    string
	factory Factory
}

// Stack holds the ordered src and dest steps.
type Stack struct {
	mu   sync.RWMutex
	src  []step
	dest []step
}

// New returns an empty stack.
func New() *Stack { return &Stack{} }

// UseSrc appends or replaces a named src step.
func (s *Stack) UseSrc(name string, f Factory) { s.use(&s.src, name, f) }

// UseDest appends or replaces a named dest step.
func (s *Stack) UseDest(name string, f Factory) { s.use(&s.dest, name, f) }

func (s *Stack) use(steps *[]step, name string, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range *steps {
		if (*steps)[i].name == name {
			(*steps)[i].factory = f
			return
		}
	}
	*steps = append(*steps, step{name: name, factory: f})
}

// SrcSteps returns the src step names in order.
func (s *Stack) SrcSteps() []string { return s.names(s.src) }

// DestSteps returns the dest step names in order.
func (s *Stack) DestSteps() []string { return s.names(s.dest) }

func (s *Stack) names(steps []step) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(steps))
	for _, st := range steps {
		out = append(out, st.name)
	}
	return out
}

// Src returns the transform running every src step over each file.
func (s *Stack) Src(ctx context.Context, p Params) vfs.Transform {
	return s.transform(ctx, s.snapshot(s.src), p)
}

// Dest returns the transform running every dest step over each file.
func (s *Stack) Dest(ctx context.Context, p Params) vfs.Transform {
	return s.transform(ctx, s.snapshot(s.dest), p)
}

func (s *Stack) snapshot(steps []step) []step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(steps)
}

func (s *Stack) transform(ctx context.Context, steps []step, p Params) vfs.Transform {
	mws := make([]Middleware, 0, len(steps))
	for _, st := range steps {
		mws = append(mws, st.factory(p))
	}
	h := Chain(identity, mws...)
	return vfs.Map(func(f *vfs.File) (*vfs.File, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return h(ctx, f)
	})
}

func identity(_ context.Context, f *vfs.File) (*vfs.File, error) { return f, nil }
