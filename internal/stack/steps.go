package stack

import (
	"context"
	"fmt"
	"maps"
	"time"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/frontmatter"
	"git.home.luguber.info/inful/assemble/internal/frontmatterops"
	"git.home.luguber.info/inful/assemble/internal/logfields"
	"git.home.luguber.info/inful/assemble/internal/observability"
	"git.home.luguber.info/inful/assemble/internal/template"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// Built-in step names.
const (
	StepFrontmatter = "frontmatter"
	StepData        = "data"
	StepCollect     = "collect"
	StepRoutes      = "routes"
	StepRender      = "render"
	StepExt         = "ext"
	StepFingerprint = "fingerprint"
)

func renderable(p Params, f *vfs.File) bool {
	return p.Engine != nil && f.Contents != nil && p.Engine.Renderable(f.Path)
}

// Frontmatter splits YAML frontmatter of renderable files into File.Data.
func Frontmatter(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if renderable(p, f) {
				doc, err := frontmatter.Parse(f.Contents)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", f.Path, err)
				}
				if f.Data == nil {
					f.Data = make(map[string]any, len(doc.Data))
				}
				maps.Copy(f.Data, doc.Data)
				f.Contents = doc.Body
			}
			return next(ctx, f)
		}
	}
}

// Data merges global data and Options.Data beneath the file's own data.
func Data(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			merged := make(map[string]any)
			if p.Engine != nil {
				maps.Copy(merged, p.Engine.Data())
			}
			maps.Copy(merged, p.Options.Data)
			maps.Copy(merged, f.Data)
			f.Data = merged
			return next(ctx, f)
		}
	}
}

// Collect adds renderable files as views to the call's collection.
func Collect(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if p.Collection != nil && renderable(p, f) {
				p.Collection.Set(&template.View{Path: f.Relative(), Contents: f.Contents, Data: f.Data})
			}
			return next(ctx, f)
		}
	}
}

// Routes dispatches files through the router.
func Routes(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if p.Router == nil {
				return next(ctx, f)
			}
			builtins := p.Settings != nil && p.Settings.Enabled(config.SettingDefaultRoutes)
			out, err := p.Router.Dispatch(ctx, f, builtins)
			if err != nil || out == nil {
				return nil, err
			}
			return next(ctx, out)
		}
	}
}

// Render runs renderable files through the engine. Options.Layout applies
// when the file names no layout itself.
func Render(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if !renderable(p, f) {
				return next(ctx, f)
			}
			data := maps.Clone(f.Data)
			if data == nil {
				data = make(map[string]any)
			}
			if _, ok := data["layout"]; !ok && p.Options.Layout != "" {
				data["layout"] = p.Options.Layout
			}
			out, err := p.Engine.Render(ctx, &template.View{Path: f.Relative(), Contents: f.Contents, Data: data}, nil)
			if err != nil {
				return nil, err
			}
			f.Contents = out
			observability.DebugContext(ctx, "Rendered view", logfields.Path(f.Relative()))
			return next(ctx, f)
		}
	}
}

// Ext rewrites the extension of renderable files to Options.Ext.
func Ext(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if p.Options.Ext != "" && renderable(p, f) {
				f.SetExt(p.Options.Ext)
			}
			return next(ctx, f)
		}
	}
}

// Fingerprint stamps a content fingerprint into markdown output carrying
// frontmatter when Options.Fingerprint is set.
func Fingerprint(p Params) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, f *vfs.File) (*vfs.File, error) {
			if p.Options.Fingerprint && f.Contents != nil {
				if ext := f.Ext(); ext == ".md" || ext == ".markdown" {
					out, changed, err := frontmatterops.Stamp(f.Contents, time.Now())
					if err != nil {
						return nil, fmt.Errorf("%s: %w", f.Path, err)
					}
					if changed {
						f.Contents = out
					}
				}
			}
			return next(ctx, f)
		}
	}
}

// UseDefaults registers the built-in src and dest steps in order.
func UseDefaults(s *Stack) {
	s.UseSrc(StepFrontmatter, Frontmatter)
	s.UseSrc(StepData, Data)
	s.UseSrc(StepRoutes, Routes)
	s.UseSrc(StepCollect, Collect)
	s.UseSrc(StepRender, Render)
	s.UseDest(StepExt, Ext)
	s.UseDest(StepFingerprint, Fingerprint)
}
