package vfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assemble/internal/logfields"
)

// Change describes one filesystem event that matched a watch.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// ChangeFunc receives matching changes. It runs on the watcher goroutine.
type ChangeFunc func(Change)

// WatchOptions configures Watch.
type WatchOptions struct {
	Cwd string
}

// Watcher dispatches filesystem changes matching a set of globs.
type Watcher struct {
	positive []globPattern
	negative []string
	fn       ChangeFunc
	fsw      *fsnotify.Watcher

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Watch starts watching the directories covering patterns and calls fn for
// every event on a matching path. Changes are not debounced. The watcher
// stops when ctx is cancelled or Close is called.
func Watch(ctx context.Context, patterns []string, opts WatchOptions, fn ChangeFunc) (*Watcher, error) {
	if fn == nil {
		return nil, errors.New("watch: change callback is required")
	}
	cwd, err := resolveCwd(opts.Cwd)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	positive, negative := splitPatterns(cwd, patterns)
	w := &Watcher{positive: positive, negative: negative, fn: fn, fsw: fsw, done: make(chan struct{})}

	for _, p := range positive {
		root := existingParent(p.parent())
		if err := addDirsRecursive(fsw, root); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

// Dispatch delivers c to the callback when it matches the watched globs.
// The event loop uses it for every fsnotify event; callers may use it to
// inject synthetic changes.
func (w *Watcher) Dispatch(c Change) bool {
	if shouldIgnoreEvent(c.Path) || !w.Matches(c.Path) {
		return false
	}
	w.fn(c)
	return true
}

// Matches reports whether path is selected by the watched globs.
func (w *Watcher) Matches(path string) bool {
	slashed := filepath.ToSlash(path)
	if excluded(path, w.negative) {
		return false
	}
	for _, p := range w.positive {
		if p.literal {
			if slashed == p.path {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(p.path, slashed); ok {
			return true
		}
	}
	return false
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go func() { _ = w.Close() }()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(w.fsw, ev.Name)
				}
			}
			slog.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
			w.Dispatch(Change{Path: ev.Name, Op: ev.Op})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", logfields.Error(err))
		}
	}
}

func existingParent(dir string) string {
	for {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent filters editor swap files and OS metadata.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == ".DS_Store" || base == "Thumbs.db"
}
