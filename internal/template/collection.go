package template

import (
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// View is an in-memory template or page held in a Collection.
type View struct {
	// Path identifies the view inside its collection.
	Path string
	// Contents is the template body with frontmatter removed.
	Contents []byte
	// Data is the view's own frontmatter plus merged data.
	Data map[string]any
}

// Ext returns the extension of the view path.
func (v *View) Ext() string { return strings.ToLower(filepath.Ext(v.Path)) }

// Name is the file name of the view without extension.
func (v *View) Name() string {
	base := filepath.Base(v.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Collection is a named, concurrency-safe set of views keyed by path.
type Collection struct {
	singular string
	plural   string

	mu    sync.RWMutex
	views map[string]*View
}

func newCollection(singular, plural string) *Collection {
	return &Collection{singular: singular, plural: plural, views: make(map[string]*View)}
}

func (c *Collection) Singular() string { return c.singular }
func (c *Collection) Plural() string   { return c.plural }

// Set adds or replaces a view.
func (c *Collection) Set(v *View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[v.Path] = v
}

// Get returns the view stored under path.
func (c *Collection) Get(path string) (*View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[path]
	return v, ok
}

// Lookup resolves a view by exact path, then by file name with or without
// extension. Ties are broken by the lexically smallest path.
func (c *Collection) Lookup(name string) (*View, bool) {
	if v, ok := c.Get(name); ok {
		return v, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range slices.Sorted(maps.Keys(c.views)) {
		v := c.views[key]
		if v.Name() == name || filepath.Base(v.Path) == name {
			return v, true
		}
	}
	return nil, false
}

// Delete removes the view stored under path.
func (c *Collection) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, path)
}

// Len returns the number of views.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.views)
}

// Keys returns the view paths in sorted order.
func (c *Collection) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.views))
}

// All iterates a snapshot of the views in path order.
func (c *Collection) All() iter.Seq2[string, *View] {
	c.mu.RLock()
	snapshot := maps.Clone(c.views)
	c.mu.RUnlock()
	return func(yield func(string, *View) bool) {
		for _, key := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(key, snapshot[key]) {
				return
			}
		}
	}
}

// Reset removes every view.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.views)
}
