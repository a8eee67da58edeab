package vfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func relatives(files []*File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Relative())
	}
	return out
}

func TestSrcMatchesGlobRelativeToParent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pages/index.md":      "home",
		"pages/docs/intro.md": "intro",
		"pages/logo.png":      "png",
	})

	files, err := Src([]string{"pages/**/*.md"}, SrcOptions{Cwd: root}).Collect(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"index.md", "docs/intro.md"}, relatives(files))
	for _, f := range files {
		assert.NotNil(t, f.Contents)
		assert.NotNil(t, f.Data)
	}
}

func TestSrcNegationAndDedup(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "a", "b.md": "b", "draft.md": "d"})

	files, err := Src([]string{"*.md", "a.md", "!draft.md"}, SrcOptions{Cwd: root}).Collect(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, relatives(files))
}

func TestSrcSingularMissingFileFails(t *testing.T) {
	_, err := Src([]string{"missing.md"}, SrcOptions{Cwd: t.TempDir()}).Collect(t.Context())
	require.Error(t, err)

	files, err := Src([]string{"missing.md"}, SrcOptions{Cwd: t.TempDir(), AllowEmpty: true}).Collect(t.Context())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSrcLiteralPatternInMetaCwd(t *testing.T) {
	root := filepath.Join(t.TempDir(), "site[1]")
	writeTree(t, root, map[string]string{"a.md": "a"})

	files, err := Src([]string{"a.md"}, SrcOptions{Cwd: root}).Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.md", files[0].Relative())
	assert.Equal(t, "a", string(files[0].Contents))

	_, err = Src([]string{"missing.md"}, SrcOptions{Cwd: root}).Collect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singular glob")
}

func TestSrcSkipRead(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})
	files, err := Src([]string{"*.txt"}, SrcOptions{Cwd: root, SkipRead: true}).Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Nil(t, files[0].Contents)
}

func TestSrcIsLazy(t *testing.T) {
	root := t.TempDir()
	s := Src([]string{"*.md"}, SrcOptions{Cwd: root})
	writeTree(t, root, map[string]string{"late.md": "x"})
	files, err := s.Collect(t.Context())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDestWritesByteIdentical(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"assets/css/site.css": "body{}", "assets/img/a.bin": "\x00\x01\x02"})

	out := filepath.Join(root, "dist")
	files, err := Src([]string{"assets/**"}, SrcOptions{Cwd: root}).Pipe(Dest(out, DestOptions{})).Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, rel := range []string{"css/site.css", "img/a.bin"} {
		want, err := os.ReadFile(filepath.Join(root, "assets", rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(out, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, out, files[0].Base)
}

func TestDestRespectsOverwriteFalse(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.txt": "new", "dist/a.txt": "old"})
	no := false
	err := Src([]string{"src/*.txt"}, SrcOptions{Cwd: root}).
		Pipe(Dest("dist", DestOptions{Cwd: root, Overwrite: &no})).
		Drain(t.Context())
	require.NoError(t, err)
	got, _ := os.ReadFile(filepath.Join(root, "dist", "a.txt"))
	assert.Equal(t, "old", string(got))
}

func TestMapDropsAndStopsOnError(t *testing.T) {
	files := FromFiles(&File{Path: "/a"}, &File{Path: "/b"}, &File{Path: "/c"})

	kept, err := files.Pipe(Map(func(f *File) (*File, error) {
		if f.Path == "/b" {
			return nil, nil
		}
		return f, nil
	})).Collect(t.Context())
	require.NoError(t, err)
	assert.Len(t, kept, 2)

	boom := errors.New("boom")
	var seen atomic.Int32
	err = files.Pipe(Map(func(f *File) (*File, error) {
		seen.Add(1)
		if f.Path == "/b" {
			return nil, boom
		}
		return f, nil
	})).Drain(t.Context())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), seen.Load())
}

func TestDrainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := FromFiles(&File{Path: "/a"}).Drain(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileHelpers(t *testing.T) {
	f := &File{Base: "/site/pages", Path: "/site/pages/docs/intro.md", Data: map[string]any{"a": 1}}
	assert.Equal(t, "docs/intro.md", f.Relative())
	assert.Equal(t, "intro", f.Stem())
	f.SetExt("html")
	assert.Equal(t, "/site/pages/docs/intro.html", f.Path)
}

func TestWatcherDispatchFiltersByGlob(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"docs/a.md": "a"})

	var got []string
	w, err := Watch(t.Context(), []string{"docs/**/*.md", "!docs/skip.md"}, WatchOptions{Cwd: root}, func(c Change) {
		got = append(got, filepath.Base(c.Path))
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.True(t, w.Dispatch(Change{Path: filepath.Join(root, "docs", "a.md"), Op: fsnotify.Write}))
	assert.False(t, w.Dispatch(Change{Path: filepath.Join(root, "docs", "skip.md"), Op: fsnotify.Write}))
	assert.False(t, w.Dispatch(Change{Path: filepath.Join(root, "docs", "a.txt"), Op: fsnotify.Write}))
	assert.False(t, w.Dispatch(Change{Path: filepath.Join(root, "docs", "a.md.swp"), Op: fsnotify.Write}))
	assert.Equal(t, []string{"a.md"}, got)
}

func TestWatcherReceivesFilesystemEvents(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"docs/a.md": "a"})

	var hits atomic.Int32
	w, err := Watch(t.Context(), []string{"docs/*.md"}, WatchOptions{Cwd: root}, func(Change) { hits.Add(1) })
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.md"), []byte("changed"), 0o644))
	require.Eventually(t, func() bool { return hits.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestWatchRequiresCallback(t *testing.T) {
	_, err := Watch(t.Context(), []string{"*.md"}, WatchOptions{Cwd: t.TempDir()}, nil)
	require.Error(t, err)
}
