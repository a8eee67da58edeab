package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DestOptions configures Dest.
type DestOptions struct {
	// Cwd resolves a relative destination folder.
	Cwd string
	// Overwrite false keeps existing files untouched.
	Overwrite *bool
}

// Dest writes every file to dir (keeping its Relative() path) and passes it
// on with Cwd/Base/Path rewritten to the written location. Files without
// Contents are passed through untouched.
func Dest(dir string, opts DestOptions) Transform {
	return Map(func(f *File) (*File, error) {
		cwd, err := resolveCwd(opts.Cwd)
		if err != nil {
			return nil, err
		}
		outDir := dir
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(cwd, outDir)
		}
		if f.Contents == nil {
			return f, nil
		}

		target := filepath.Join(outDir, filepath.FromSlash(f.Relative()))
		if opts.Overwrite != nil && !*opts.Overwrite {
			if _, err := os.Stat(target); err == nil {
				return f, nil
			}
		}

		var mode fs.FileMode
		if f.Stat != nil {
			mode = f.Stat.Mode().Perm()
		}
		if mode == 0 {
			mode = 0o644
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, f.Contents, mode); err != nil {
			return nil, fmt.Errorf("write %s: %w", target, err)
		}

		f.Cwd = cwd
		f.Base = outDir
		f.Path = target
		if info, err := os.Stat(target); err == nil {
			f.Stat = info
		}
		return f, nil
	})
}
