package config

import (
	"fmt"
	"maps"

	"dario.cat/mergo"
)

// Options are the per-call pipeline options for src/dest/copy.
//
// Merge order is built-in defaults, then instance options, then call-site
// options; later layers override non-zero fields of earlier ones.
type Options struct {
	// Cwd resolves relative globs and destinations. Default: process cwd.
	Cwd string `yaml:"cwd,omitempty"`
	// Base overrides the glob parent used to compute relative output paths.
	Base string `yaml:"base,omitempty"`
	// Layout names the layout rendered around each page. Default: none.
	Layout string `yaml:"layout,omitempty"`
	// Ext is the extension given to rendered files on dest. Default: ".html".
	Ext string `yaml:"ext,omitempty"`
	// Minimal bypasses the middleware stack for this call.
	Minimal bool `yaml:"minimal,omitempty"`
	// Fingerprint stamps a content fingerprint into markdown frontmatter on dest.
	Fingerprint bool `yaml:"fingerprint,omitempty"`
	// AllowEmpty tolerates literal patterns matching nothing.
	AllowEmpty bool `yaml:"allow_empty,omitempty"`
	// Read false streams files without contents. Default: true.
	Read *bool `yaml:"read,omitempty"`
	// Overwrite false keeps existing files on dest. Default: true.
	Overwrite *bool `yaml:"overwrite,omitempty"`
	// Data is merged under each file's own frontmatter.
	Data map[string]any `yaml:"data,omitempty"`
}

// Clone returns a copy whose Data map and flag pointers are independent.
func (o Options) Clone() Options {
	o.Data = maps.Clone(o.Data)
	o.Read = cloneBool(o.Read)
	o.Overwrite = cloneBool(o.Overwrite)
	return o
}

// ReadContents reports whether sources should be read.
func (o Options) ReadContents() bool { return o.Read == nil || *o.Read }

// MergeOptions merges layers in order. The result shares no maps with the
// inputs. Read and Overwrite take the last non-nil layer, so a later layer
// can switch them off.
func MergeOptions(layers ...Options) (Options, error) {
	var out Options
	var read, overwrite *bool
	for i, layer := range layers {
		l := layer.Clone()
		if l.Read != nil {
			read = l.Read
		}
		if l.Overwrite != nil {
			overwrite = l.Overwrite
		}
		l.Read, l.Overwrite = nil, nil
		if err := mergo.Merge(&out, l, mergo.WithOverride); err != nil {
			return Options{}, fmt.Errorf("merge options layer %d: %w", i, err)
		}
	}
	out.Data = maps.Clone(out.Data)
	out.Read, out.Overwrite = read, overwrite
	return out, nil
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return Bool(*b)
}
