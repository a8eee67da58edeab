package session

import "sync"

// Scope is one isolated key/value context.
type Scope struct {
	id     string
	parent *Scope

	mu     sync.RWMutex
	values map[string]any
	closed bool
}

func newScope(id string, parent *Scope) *Scope {
	return &Scope{id: id, parent: parent, values: make(map[string]any)}
}

func (sc *Scope) get(key string) any {
	sc.mu.RLock()
	if sc.closed {
		sc.mu.RUnlock()
		return nil
	}
	v, ok := sc.values[key]
	sc.mu.RUnlock()
	if ok {
		return v
	}
	if sc.parent != nil {
		return sc.parent.get(key)
	}
	return nil
}

func (sc *Scope) set(key string, value any) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	sc.values[key] = value
}

func (sc *Scope) close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.closed = true
	clear(sc.values)
}
