package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SrcOptions configures Src.
type SrcOptions struct {
	// Cwd resolves relative patterns; defaults to the process working directory.
	Cwd string
	// Base overrides the glob parent used for Relative().
	Base string
	// SkipRead leaves File.Contents nil.
	SkipRead bool
	// AllowEmpty suppresses the error raised when a non-negated pattern
	// without wildcards matches nothing.
	AllowEmpty bool
}

// Src returns a stream of files matching patterns. Patterns starting with
// "!" exclude matches. Files are emitted once, sorted per pattern.
func Src(patterns []string, opts SrcOptions) Stream {
	return func(yield func(*File, error) bool) {
		cwd, err := resolveCwd(opts.Cwd)
		if err != nil {
			yield(nil, err)
			return
		}

		positive, negative := splitPatterns(cwd, patterns)
		seen := make(map[string]struct{})
		for _, gp := range positive {
			pattern := gp.path
			matches, err := gp.matches()
			if err != nil {
				yield(nil, fmt.Errorf("glob %q: %w", pattern, err))
				return
			}
			if len(matches) == 0 && !opts.AllowEmpty && gp.literal {
				yield(nil, fmt.Errorf("file not found with singular glob: %s", pattern))
				return
			}
			sort.Strings(matches)

			base := opts.Base
			if base == "" {
				base = gp.parent()
			} else if !filepath.IsAbs(base) {
				base = filepath.Join(cwd, base)
			}

			for _, m := range matches {
				if _, dup := seen[m]; dup || excluded(m, negative) {
					continue
				}
				seen[m] = struct{}{}

				f, err := readFile(m, cwd, base, !opts.SkipRead)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(f, nil) {
					return
				}
			}
		}
	}
}

func readFile(path, cwd, base string, read bool) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	f := &File{Cwd: cwd, Base: base, Path: path, Stat: info, Data: map[string]any{}}
	if read {
		if f.Contents, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func resolveCwd(cwd string) (string, error) {
	if cwd == "" {
		return os.Getwd()
	}
	return filepath.Abs(cwd)
}

// globPattern is a positive pattern resolved against the cwd. literal is
// decided on the pattern as given, before the cwd is joined in.
type globPattern struct {
	path    string
	literal bool
}

func (g globPattern) matches() ([]string, error) {
	if !g.literal {
		return doublestar.FilepathGlob(g.path, doublestar.WithFilesOnly())
	}
	info, err := os.Stat(filepath.FromSlash(g.path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	case info.IsDir():
		return nil, nil
	}
	return []string{filepath.FromSlash(g.path)}, nil
}

// parent is the static prefix of the pattern.
func (g globPattern) parent() string {
	if g.literal {
		return filepath.Dir(filepath.FromSlash(g.path))
	}
	base, _ := doublestar.SplitPattern(g.path)
	return filepath.FromSlash(base)
}

func splitPatterns(cwd string, patterns []string) (positive []globPattern, negative []string) {
	for _, p := range patterns {
		neg := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		literal := !hasMeta(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		p = filepath.ToSlash(p)
		if neg {
			negative = append(negative, p)
		} else {
			positive = append(positive, globPattern{path: p, literal: literal})
		}
	}
	return positive, negative
}

func excluded(path string, negative []string) bool {
	slashed := filepath.ToSlash(path)
	for _, n := range negative {
		if ok, _ := doublestar.Match(n, slashed); ok {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
