package stack

import (
	"context"
	"errors"
	"testing"

	"github.com/inful/mdfp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/frontmatter"
	"git.home.luguber.info/inful/assemble/internal/template"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

func file(rel, contents string) *vfs.File {
	return &vfs.File{Base: "/src", Path: "/src/" + rel, Contents: []byte(contents), Data: map[string]any{}}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
				order = append(order, name)
				return next(ctx, f)
			}
		}
	}
	h := Chain(identity, mw("a"), nil, mw("b"), mw("c"))
	_, err := h(t.Context(), file("x.md", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestUseReplacesNamedStep(t *testing.T) {
	s := New()
	UseDefaults(s)
	assert.Equal(t, []string{"frontmatter", "data", "routes", "collect", "render"}, s.SrcSteps())
	assert.Equal(t, []string{"ext", "fingerprint"}, s.DestSteps())

	s.UseSrc(StepRender, func(Params) Middleware { return nil })
	assert.Equal(t, []string{"frontmatter", "data", "routes", "collect", "render"}, s.SrcSteps())
}

func TestSrcStackRendersAndCollects(t *testing.T) {
	engine := template.New()
	engine.SetData(map[string]any{"site": "demo"})
	engine.Views()["layouts"].Set(&template.View{Path: "base.html", Contents: []byte("<main>{{ .body }}</main>")})
	coll := engine.Create("__task__build", "__task__builds")

	s := New()
	UseDefaults(s)
	p := Params{
		Engine:     engine,
		Options:    config.Options{Layout: "base", Data: map[string]any{"author": "me"}},
		Settings:   config.NewSettings(nil),
		Router:     NewRouter(DefaultRoutes()...),
		Collection: coll,
	}

	in := vfs.FromFiles(
		file("index.md", "---\ntitle: Home\n---\n# {{ .title }} by {{ .author }} on {{ .site }}\n"),
		file("logo.png", "\x89PNG"),
	)
	files, err := in.Pipe(s.Src(t.Context(), p)).Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "<main><h1>Home by me on demo</h1>\n</main>", string(files[0].Contents))
	assert.Equal(t, "Home", files[0].Data["title"])
	assert.Equal(t, "\x89PNG", string(files[1].Contents), "non-renderable files pass through")

	v, ok := coll.Get("index.md")
	require.True(t, ok)
	assert.Equal(t, "Home", v.Data["title"])
	assert.Equal(t, 1, coll.Len())
}

func TestDefaultRoutesRequireSetting(t *testing.T) {
	engine := template.New()
	settings := config.NewSettings(nil)
	s := New()
	UseDefaults(s)
	p := Params{Engine: engine, Settings: settings, Router: NewRouter(DefaultRoutes()...)}

	run := func() []*vfs.File {
		files, err := vfs.FromFiles(file("draft.md", "---\ndraft: true\n---\nx")).
			Pipe(s.Src(t.Context(), p)).Collect(t.Context())
		require.NoError(t, err)
		return files
	}

	assert.Len(t, run(), 1, "built-in routes disabled by default")
	settings.Enable(config.SettingDefaultRoutes)
	assert.Empty(t, run(), "drafts dropped once default routes are enabled")
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()
	require.Error(t, r.Add("[", nil))

	var seen []string
	require.NoError(t, r.Add("blog/**/*.md", func(_ context.Context, f *vfs.File) (*vfs.File, error) {
		seen = append(seen, f.Relative())
		f.Data["section"] = "blog"
		return f, nil
	}))
	require.NoError(t, r.Add("**/secret.md", func(context.Context, *vfs.File) (*vfs.File, error) {
		return nil, nil
	}))
	assert.Equal(t, 2, r.Len())

	out, err := r.Dispatch(t.Context(), file("blog/2026/post.md", ""), false)
	require.NoError(t, err)
	assert.Equal(t, "blog", out.Data["section"])
	assert.Equal(t, []string{"blog/2026/post.md"}, seen)

	out, err = r.Dispatch(t.Context(), file("x/secret.md", ""), false)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRouterHandlerErrorIsReturnedUnchanged(t *testing.T) {
	boom := errors.New("boom")
	r := NewRouter()
	require.NoError(t, r.Add("**", func(context.Context, *vfs.File) (*vfs.File, error) { return nil, boom }))

	s := New()
	UseDefaults(s)
	_, err := vfs.FromFiles(file("a.md", "a")).
		Pipe(s.Src(t.Context(), Params{Engine: template.New(), Router: r})).
		Collect(t.Context())
	require.ErrorIs(t, err, boom)
}

func TestDestStackExtAndFingerprint(t *testing.T) {
	s := New()
	UseDefaults(s)
	engine := template.New()

	html, err := vfs.FromFiles(file("a.md", "<p>x</p>")).
		Pipe(s.Dest(t.Context(), Params{Engine: engine, Options: config.Options{Ext: ".html"}})).
		Collect(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "a.html", html[0].Relative())

	md, err := vfs.FromFiles(file("b.md", "---\ntitle: B\n---\nbody\n")).
		Pipe(s.Dest(t.Context(), Params{Engine: engine, Options: config.Options{Ext: ".md", Fingerprint: true}})).
		Collect(t.Context())
	require.NoError(t, err)
	doc, err := frontmatter.Parse(md[0].Contents)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data[mdfp.FingerprintField])
	assert.Equal(t, "B", doc.Data["title"])
}

func TestStackStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	s := New()
	UseDefaults(s)
	_, err := vfs.FromFiles(file("a.md", "a")).Pipe(s.Src(ctx, Params{Engine: template.New()})).Collect(t.Context())
	require.ErrorIs(t, err, context.Canceled)
}
