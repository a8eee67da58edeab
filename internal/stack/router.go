package stack

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// Route dispatches files whose relative path matches Pattern to Handlers.
type Route struct {
	Pattern  string
	Handlers []Handler
}

// Router holds user routes and the built-in routes enabled by the
// "default routes" setting.
type Router struct {
	mu       sync.RWMutex
	routes   []Route
	builtins []Route
}

// NewRouter creates a router with the given built-in routes.
func NewRouter(builtins ...Route) *Router {
	return &Router{builtins: builtins}
}

// Add registers a route. The pattern is validated up front.
func (r *Router) Add(pattern string, handlers ...Handler) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid route pattern %q", pattern)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, Route{Pattern: pattern, Handlers: handlers})
	return nil
}

// Len returns the number of user routes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Dispatch runs matching handlers in registration order, built-ins first
// when enabled. A handler returning nil drops the file and stops dispatch.
func (r *Router) Dispatch(ctx context.Context, f *vfs.File, builtins bool) (*vfs.File, error) {
	r.mu.RLock()
	routes := make([]Route, 0, len(r.builtins)+len(r.routes))
	if builtins {
		routes = append(routes, r.builtins...)
	}
	routes = append(routes, r.routes...)
	r.mu.RUnlock()

	rel := filepath.ToSlash(f.Relative())
	for _, route := range routes {
		if ok, _ := doublestar.Match(route.Pattern, rel); !ok {
			continue
		}
		for _, h := range route.Handlers {
			out, err := h(ctx, f)
			if err != nil {
				return nil, err
			}
			if out == nil {
				return nil, nil
			}
			f = out
		}
	}
	return f, nil
}

// DefaultRoutes are the built-in routes: files marked `draft: true` are
// dropped.
func DefaultRoutes() []Route {
	return []Route{{Pattern: "**", Handlers: []Handler{dropDrafts}}}
}

func dropDrafts(_ context.Context, f *vfs.File) (*vfs.File, error) {
	if draft, _ := f.Data["draft"].(bool); draft {
		return nil, nil
	}
	return f, nil
}
