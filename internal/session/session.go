// Package session provides task-scoped key/value storage.
//
// A Store hands out isolated scopes through Run. The scope travels inside the
// context.Context passed to the callback, so every goroutine, stream transform
// or callback that receives that context resolves Get/Set against the same
// scope while sibling scopes stay invisible. Outside of any Run the Store falls
// back to a process-wide default scope.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyTaskName is the key under which the task wrapper records the running task.
const KeyTaskName = "task name"

// Store owns the table of open scopes plus the default scope.
type Store struct {
	name     string
	fallback *Scope

	mu   sync.Mutex
	open map[string]*Scope
}

type scopeKey struct{ store *Store }

// New creates a Store. The name is informational.
func New(name string) *Store {
	return &Store{
		name:     name,
		fallback: newScope("", nil),
		open:     make(map[string]*Scope),
	}
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Run executes fn inside a fresh scope. Reads in the new scope fall through to
// the enclosing scope of ctx (if any); writes stay local. The scope is closed
// when fn returns, errors or panics.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, _ := ctx.Value(scopeKey{s}).(*Scope)
	sc := newScope(uuid.NewString(), parent)

	s.mu.Lock()
	s.open[sc.id] = sc
	s.mu.Unlock()

	defer func() {
		sc.close()
		s.mu.Lock()
		delete(s.open, sc.id)
		s.mu.Unlock()
	}()

	return fn(context.WithValue(ctx, scopeKey{s}, sc))
}

// Get reads key from the innermost scope in ctx.
func (s *Store) Get(ctx context.Context, key string) any {
	return s.scope(ctx).get(key)
}

// GetString reads key and returns it when it holds a string.
func (s *Store) GetString(ctx context.Context, key string) string {
	v, _ := s.Get(ctx, key).(string)
	return v
}

// Set writes key into the innermost scope in ctx. Writes to a closed scope
// are dropped.
func (s *Store) Set(ctx context.Context, key string, value any) {
	s.scope(ctx).set(key, value)
}

// ID returns the ID of the innermost scope in ctx, empty outside Run.
func (s *Store) ID(ctx context.Context) string {
	return s.scope(ctx).id
}

// Active reports how many scopes are currently open.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *Store) scope(ctx context.Context) *Scope {
	if ctx != nil {
		if sc, ok := ctx.Value(scopeKey{s}).(*Scope); ok {
			return sc
		}
	}
	return s.fallback
}
