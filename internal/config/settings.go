package config

import (
	"maps"
	"sync"
)

// Recognized settings.
const (
	// SettingDefaultRoutes enables the built-in routes of the src stack.
	SettingDefaultRoutes = "default routes"
	// SettingMinimalConfig bypasses the middleware stack in src/dest.
	SettingMinimalConfig = "minimal config"
)

// Settings is a concurrency-safe set of named boolean flags.
type Settings struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewSettings creates Settings seeded with initial.
func NewSettings(initial map[string]bool) *Settings {
	s := &Settings{flags: make(map[string]bool, len(initial))}
	maps.Copy(s.flags, initial)
	return s
}

func (s *Settings) Enable(name string)  { s.Set(name, true) }
func (s *Settings) Disable(name string) { s.Set(name, false) }

// Set assigns a flag.
func (s *Settings) Set(name string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
}

// Enabled reports whether name is set to true.
func (s *Settings) Enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// Snapshot returns a copy of all flags.
func (s *Settings) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.flags)
}
