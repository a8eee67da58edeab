package vfs

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// File is one record flowing through a stream.
type File struct {
	// Cwd is the working directory the glob was resolved against.
	Cwd string
	// Base is the glob parent; Relative() is computed against it.
	Base string
	// Path is the absolute file path.
	Path string
	// Contents is nil when the source was read with Read=false.
	Contents []byte
	Stat     fs.FileInfo
	// Data holds frontmatter and merged template data.
	Data map[string]any
}

// Relative returns Path relative to Base using forward slashes.
func (f *File) Relative() string {
	rel, err := filepath.Rel(f.Base, f.Path)
	if err != nil {
		return filepath.ToSlash(filepath.Base(f.Path))
	}
	return filepath.ToSlash(rel)
}

// Ext returns the file extension including the dot.
func (f *File) Ext() string {
	return filepath.Ext(f.Path)
}

// Stem returns the base name without extension.
func (f *File) Stem() string {
	return strings.TrimSuffix(filepath.Base(f.Path), f.Ext())
}

// SetExt replaces the extension of Path.
func (f *File) SetExt(ext string) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f.Path = strings.TrimSuffix(f.Path, f.Ext()) + ext
}
