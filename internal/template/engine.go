// Package template is the templating collaborator: view collections, an
// inflection table, global data and rendering through text/template with
// sprig helpers, markdown conversion and layout chains.
package template

import (
	"context"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/version"
)

// Built-in view types.
const (
	TypePage    = "page"
	TypeLayout  = "layout"
	TypePartial = "partial"
)

// Engine is the contract the application relies on.
type Engine interface {
	// DefaultOptions are the lowest-precedence pipeline options.
	DefaultOptions() config.Options
	// Views returns a snapshot of collections keyed by plural name.
	Views() map[string]*Collection
	// Inflections maps singular view types to their plural names.
	Inflections() map[string]string
	// Create registers a view type, returning the existing collection when
	// the type is already known.
	Create(singular, plural string) *Collection
	// Render executes view with data merged over global and view data.
	Render(ctx context.Context, view *View, data map[string]any) ([]byte, error)
	// Renderable reports whether a path is rendered by the engine.
	Renderable(path string) bool
	Env() map[string]any
	Data() map[string]any
	// SetData merges data into the global data.
	SetData(data map[string]any)
	// Load reads files matching patterns into the collection of type and
	// returns how many views were loaded.
	Load(ctx context.Context, typ string, patterns []string, opts config.Options) (int, error)
}

// Templates is the default Engine.
type Templates struct {
	defaults config.Options

	mu          sync.RWMutex
	inflections map[string]string
	views       map[string]*Collection
	data        map[string]any
}

// Option configures Templates.
type Option func(*Templates)

// WithDefaults overrides the built-in default options.
func WithDefaults(opts config.Options) Option {
	return func(t *Templates) { t.defaults = opts.Clone() }
}

// New creates an engine with the page, layout and partial types registered.
func New(opts ...Option) *Templates {
	t := &Templates{
		defaults:    config.Options{Ext: ".html"},
		inflections: make(map[string]string),
		views:       make(map[string]*Collection),
		data:        make(map[string]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Create(TypePage, "pages")
	t.Create(TypeLayout, "layouts")
	t.Create(TypePartial, "partials")
	return t
}

func (t *Templates) DefaultOptions() config.Options { return t.defaults.Clone() }

func (t *Templates) Views() map[string]*Collection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.views)
}

func (t *Templates) Inflections() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.inflections)
}

func (t *Templates) Create(singular, plural string) *Collection {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.inflections[singular]; ok {
		return t.views[existing]
	}
	c := newCollection(singular, plural)
	t.inflections[singular] = plural
	t.views[plural] = c
	return c
}

// collection resolves a singular type to its collection.
func (t *Templates) collection(singular string) *Collection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	plural, ok := t.inflections[singular]
	if !ok {
		return nil
	}
	return t.views[plural]
}

func (t *Templates) Data() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.data)
}

func (t *Templates) SetData(data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.data, data)
}

// Env describes the engine: registered types, defaults and runtime.
func (t *Templates) Env() map[string]any {
	t.mu.RLock()
	types := slices.Sorted(maps.Keys(t.inflections))
	t.mu.RUnlock()
	return map[string]any{
		"version": version.Version,
		"go":      runtime.Version(),
		"types":   types,
		"ext":     t.defaults.Ext,
		"layout":  t.defaults.Layout,
	}
}

var renderable = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".tmpl":     true,
}

func (t *Templates) Renderable(path string) bool {
	return renderable[strings.ToLower(filepath.Ext(path))]
}
