package template

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assemble/internal/config"
)

func TestNewRegistersBuiltinTypes(t *testing.T) {
	e := New()
	assert.Equal(t, map[string]string{"page": "pages", "layout": "layouts", "partial": "partials"}, e.Inflections())
	assert.Contains(t, e.Views(), "pages")
	assert.Equal(t, ".html", e.DefaultOptions().Ext)
}

func TestCreateIsIdempotent(t *testing.T) {
	e := New()
	first := e.Create("__task__build", "__task__builds")
	first.Set(&View{Path: "a.md"})

	again := e.Create("__task__build", "ignored")
	assert.Same(t, first, again)
	assert.Equal(t, "__task__builds", e.Inflections()["__task__build"])
	assert.Equal(t, 1, e.Views()["__task__builds"].Len())
}

func TestViewsIsSnapshot(t *testing.T) {
	e := New()
	views := e.Views()
	delete(views, "pages")
	assert.Contains(t, e.Views(), "pages")
}

func TestCollectionConcurrentAccess(t *testing.T) {
	c := newCollection("page", "pages")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := filepath.Join("p", strings.Repeat("x", i%7+1)+".md")
			c.Set(&View{Path: p})
			_, _ = c.Get(p)
			_ = c.Keys()
		}()
	}
	wg.Wait()
	assert.Equal(t, 7, c.Len())
}

func TestCollectionLookupByName(t *testing.T) {
	c := newCollection("layout", "layouts")
	c.Set(&View{Path: "nested/default.html"})
	v, ok := c.Lookup("default")
	require.True(t, ok)
	assert.Equal(t, "nested/default.html", v.Path)

	_, ok = c.Lookup("default.html")
	assert.True(t, ok)
	_, ok = c.Lookup("missing")
	assert.False(t, ok)
}

func TestRenderMergesDataPrecedence(t *testing.T) {
	e := New()
	e.SetData(map[string]any{"site": "global", "title": "global"})
	v := &View{Path: "a.html", Contents: []byte("{{ .site }}/{{ .title }}/{{ .extra }}"), Data: map[string]any{"title": "page"}}

	out, err := e.Render(t.Context(), v, map[string]any{"extra": "call"})
	require.NoError(t, err)
	assert.Equal(t, "global/page/call", string(out))
}

func TestRenderSprigAndMarkdown(t *testing.T) {
	e := New()
	v := &View{Path: "doc.md", Contents: []byte("# {{ upper .title }}\n\n| a |\n|---|\n| b |\n"), Data: map[string]any{"title": "hello"}}

	out, err := e.Render(t.Context(), v, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>HELLO</h1>")
	assert.Contains(t, string(out), "<table>", "GFM tables are enabled")
}

func TestRenderEmptyViewIsNotNil(t *testing.T) {
	e := New()
	for _, path := range []string{"blank.html", "meta.md"} {
		out, err := e.Render(t.Context(), &View{Path: path, Contents: []byte{}}, nil)
		require.NoError(t, err)
		assert.NotNil(t, out, path)
		assert.Empty(t, out, path)
	}
}

func TestRenderNestedLayouts(t *testing.T) {
	e := New()
	layouts := e.Views()["layouts"]
	layouts.Set(&View{Path: "base.html", Contents: []byte("<html>{{ .body }}</html>")})
	layouts.Set(&View{Path: "post.html", Contents: []byte("<article>{{ .body }}</article>"), Data: map[string]any{"layout": "base"}})

	v := &View{Path: "p.html", Contents: []byte("hi {{ .name }}"), Data: map[string]any{"layout": "post", "name": "x"}}
	out, err := e.Render(t.Context(), v, nil)
	require.NoError(t, err)
	assert.Equal(t, "<html><article>hi x</article></html>", string(out))
}

func TestRenderLayoutCycle(t *testing.T) {
	e := New()
	layouts := e.Views()["layouts"]
	layouts.Set(&View{Path: "a.html", Contents: []byte("{{ .body }}"), Data: map[string]any{"layout": "b"}})
	layouts.Set(&View{Path: "b.html", Contents: []byte("{{ .body }}"), Data: map[string]any{"layout": "a"}})

	_, err := e.Render(t.Context(), &View{Path: "p.html", Data: map[string]any{"layout": "a"}}, nil)
	require.ErrorIs(t, err, ErrLayoutCycle)
}

func TestRenderMissingLayout(t *testing.T) {
	e := New()
	_, err := e.Render(t.Context(), &View{Path: "p.html", Data: map[string]any{"layout": "nope"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `layout "nope" not found`)
}

func TestRenderPartial(t *testing.T) {
	e := New()
	e.Views()["partials"].Set(&View{Path: "greet.html", Contents: []byte("hello {{ .who }}")})

	v := &View{Path: "p.html", Contents: []byte(`{{ partial "greet" (dict "who" "world") }}`)}
	out, err := e.Render(t.Context(), v, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestRenderRecursivePartialIsBounded(t *testing.T) {
	e := New()
	e.Views()["partials"].Set(&View{Path: "loop.html", Contents: []byte(`{{ partial "loop" }}`)})

	_, err := e.Render(t.Context(), &View{Path: "p.html", Contents: []byte(`{{ partial "loop" }}`)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting deeper")
}

func TestRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := contextWithCancel(t)
	cancel()
	_, err := New().Render(ctx, &View{Path: "p.html"}, nil)
	require.Error(t, err)
}

func TestRenderable(t *testing.T) {
	e := New()
	assert.True(t, e.Renderable("a/b.MD"))
	assert.True(t, e.Renderable("x.html"))
	assert.False(t, e.Renderable("img.png"))
	assert.False(t, e.Renderable("dir.md/file"))
}

func TestLoadLayouts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "layouts"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts", "default.html"),
		[]byte("---\ntitle: base\n---\n<main>{{ .body }}</main>"), 0o600))

	e := New()
	n, err := e.Load(t.Context(), TypeLayout, []string{"layouts/*.html"}, config.Options{Cwd: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, ok := e.Views()["layouts"].Get("default.html")
	require.True(t, ok)
	assert.Equal(t, "<main>{{ .body }}</main>", string(v.Contents))
	assert.Equal(t, "base", v.Data["title"])
}

func TestLoadUnknownType(t *testing.T) {
	_, err := New().Load(t.Context(), "widget", []string{"*"}, config.Options{Cwd: t.TempDir()})
	require.Error(t, err)
}

func TestEnvAndData(t *testing.T) {
	e := New(WithDefaults(config.Options{Ext: ".htm", Layout: "base"}))
	env := e.Env()
	assert.Equal(t, ".htm", env["ext"])
	assert.Equal(t, "base", env["layout"])
	assert.Equal(t, []string{"layout", "page", "partial"}, env["types"])

	e.SetData(map[string]any{"a": 1})
	d := e.Data()
	d["a"] = 2
	assert.Equal(t, 1, e.Data()["a"])
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}
