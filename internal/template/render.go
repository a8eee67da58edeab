package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// maxPartialDepth bounds nested partial calls.
const maxPartialDepth = 32

// ErrLayoutCycle is returned when a layout chain refers back to itself.
var ErrLayoutCycle = errors.New("layout cycle")

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

func (t *Templates) Render(ctx context.Context, view *View, data map[string]any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vars := t.Data()
	maps.Copy(vars, view.Data)
	maps.Copy(vars, data)

	out, err := t.execute(view.Path, view.Contents, vars, 0)
	if err != nil {
		return nil, err
	}
	if isMarkdown(view.Ext()) {
		if out, err = convertMarkdown(out); err != nil {
			return nil, fmt.Errorf("render markdown %s: %w", view.Path, err)
		}
	}
	return t.applyLayouts(ctx, out, vars)
}

// applyLayouts wraps body in the layout named by vars["layout"], then in
// that layout's own layout, until a layout declares none.
func (t *Templates) applyLayouts(ctx context.Context, body []byte, vars map[string]any) ([]byte, error) {
	name := stringValue(vars["layout"])
	if name == "" {
		return body, nil
	}
	layouts := t.collection(TypeLayout)
	visited := make(map[string]struct{})
	for name != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, seen := visited[name]; seen {
			return nil, fmt.Errorf("%w: %q", ErrLayoutCycle, name)
		}
		visited[name] = struct{}{}

		var layout *View
		if layouts != nil {
			layout, _ = layouts.Lookup(name)
		}
		if layout == nil {
			return nil, fmt.Errorf("layout %q not found", name)
		}

		lvars := maps.Clone(layout.Data)
		if lvars == nil {
			lvars = make(map[string]any, len(vars)+1)
		}
		maps.Copy(lvars, vars)
		lvars["body"] = string(body)

		out, err := t.execute(layout.Path, layout.Contents, lvars, 0)
		if err != nil {
			return nil, err
		}
		body = out
		name = stringValue(layout.Data["layout"])
	}
	return body, nil
}

func (t *Templates) execute(name string, body []byte, vars map[string]any, depth int) ([]byte, error) {
	tpl, err := template.New(name).Funcs(t.funcs(vars, depth)).Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return nonNil(buf.Bytes()), nil
}

func (t *Templates) funcs(vars map[string]any, depth int) template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["partial"] = func(name string, data ...any) (string, error) {
		if depth >= maxPartialDepth {
			return "", fmt.Errorf("partial %q: nesting deeper than %d", name, maxPartialDepth)
		}
		partials := t.collection(TypePartial)
		var v *View
		if partials != nil {
			v, _ = partials.Lookup(name)
		}
		if v == nil {
			return "", fmt.Errorf("partial %q not found", name)
		}
		pvars := maps.Clone(v.Data)
		if pvars == nil {
			pvars = make(map[string]any)
		}
		maps.Copy(pvars, vars)
		if len(data) > 0 {
			if m, ok := data[0].(map[string]any); ok {
				maps.Copy(pvars, m)
			}
		}
		out, err := t.execute(v.Path, v.Contents, pvars, depth+1)
		if err != nil {
			return "", err
		}
		if isMarkdown(v.Ext()) {
			if out, err = convertMarkdown(out); err != nil {
				return "", err
			}
		}
		return string(out), nil
	}
	funcs["markdown"] = func(s string) (string, error) {
		out, err := convertMarkdown([]byte(s))
		return string(out), err
	}
	return funcs
}

func convertMarkdown(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return nil, err
	}
	return nonNil(buf.Bytes()), nil
}

// nonNil keeps an empty render distinguishable from a file that was never read.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func isMarkdown(ext string) bool {
	return ext == ".md" || ext == ".markdown"
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case bool:
		if !s {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(s)
	}
}
