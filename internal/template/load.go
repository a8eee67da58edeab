package template

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assemble/internal/config"
	"git.home.luguber.info/inful/assemble/internal/frontmatter"
	"git.home.luguber.info/inful/assemble/internal/vfs"
)

// ViewFromFile builds a view from a stream file, splitting frontmatter when
// the file data has not been populated yet.
func ViewFromFile(f *vfs.File) (*View, error) {
	v := &View{Path: f.Relative(), Contents: f.Contents, Data: f.Data}
	if len(f.Data) > 0 || f.Contents == nil {
		return v, nil
	}
	doc, err := frontmatter.Parse(f.Contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	v.Contents, v.Data = doc.Body, doc.Data
	return v, nil
}

func (t *Templates) Load(ctx context.Context, typ string, patterns []string, opts config.Options) (int, error) {
	c := t.collection(typ)
	if c == nil {
		return 0, fmt.Errorf("unknown view type %q", typ)
	}
	src := vfs.Src(patterns, vfs.SrcOptions{Cwd: opts.Cwd, Base: opts.Base, AllowEmpty: true})
	n := 0
	for f, err := range src {
		if err != nil {
			return n, err
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		v, err := ViewFromFile(f)
		if err != nil {
			return n, err
		}
		c.Set(v)
		n++
	}
	return n, nil
}
