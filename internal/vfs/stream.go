// Package vfs is the file-stream collaborator: glob-driven sources, directory
// sinks and filesystem watching built on lazy iterator streams.
package vfs

import (
	"context"
	"iter"
)

// Stream is a lazy sequence of files. Nothing is read until the stream is
// ranged over. An error ends the stream.
type Stream iter.Seq2[*File, error]

// Transform turns one stream into another.
type Transform func(Stream) Stream

// Pipe applies transforms in order.
func (s Stream) Pipe(ts ...Transform) Stream {
	out := s
	for _, t := range ts {
		if t != nil {
			out = t(out)
		}
	}
	return out
}

// Drain consumes the stream, returning the first error. Cancellation of ctx
// stops consumption between files.
func (s Stream) Drain(ctx context.Context) error {
	_, err := s.count(ctx, nil)
	return err
}

// Collect consumes the stream and returns every file.
func (s Stream) Collect(ctx context.Context) ([]*File, error) {
	var files []*File
	_, err := s.count(ctx, func(f *File) { files = append(files, f) })
	return files, err
}

func (s Stream) count(ctx context.Context, each func(*File)) (int, error) {
	if s == nil {
		return 0, nil
	}
	n := 0
	for f, err := range s {
		if err != nil {
			return n, err
		}
		if ctx != nil {
			if cerr := ctx.Err(); cerr != nil {
				return n, cerr
			}
		}
		if each != nil {
			each(f)
		}
		n++
	}
	return n, nil
}

// Map builds a Transform applying fn to every file. Returning a nil file
// drops it from the stream.
func Map(fn func(*File) (*File, error)) Transform {
	return func(in Stream) Stream {
		return func(yield func(*File, error) bool) {
			for f, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				out, err := fn(f)
				if err != nil {
					yield(nil, err)
					return
				}
				if out == nil {
					continue
				}
				if !yield(out, nil) {
					return
				}
			}
		}
	}
}

// Chain composes transforms into one.
func Chain(ts ...Transform) Transform {
	return func(in Stream) Stream {
		return in.Pipe(ts...)
	}
}

// FromFiles builds a stream over an in-memory slice.
func FromFiles(files ...*File) Stream {
	return func(yield func(*File, error) bool) {
		for _, f := range files {
			if !yield(f, nil) {
				return
			}
		}
	}
}
