// Package frontmatter splits YAML frontmatter (`---` delimited) from document
// bodies and writes it back.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a frontmatter
// block that was never closed.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a parsed source file.
type Document struct {
	Data    map[string]any
	Body    []byte
	Had     bool
	Newline string
}

// Parse splits content into frontmatter data and body. Content without a
// leading delimiter yields empty Data, Had=false and the full body.
func Parse(content []byte) (*Document, error) {
	nl := detectNewline(content)
	doc := &Document{Data: map[string]any{}, Body: content, Newline: nl}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return doc, nil
	}

	start := len(open)
	var raw []byte
	switch {
	case bytes.HasPrefix(content[start:], open):
		doc.Body = content[start+len(open):]
	default:
		closeSeq := []byte(nl + "---" + nl)
		idx := bytes.Index(content[start:], closeSeq)
		if idx < 0 {
			// Allow a closing delimiter at EOF without trailing newline.
			if bytes.HasSuffix(content, []byte(nl+"---")) {
				raw = content[start : len(content)-len("---")]
				doc.Body = []byte{}
				break
			}
			return nil, ErrMissingClosingDelimiter
		}
		raw = content[start : start+idx+len(nl)]
		doc.Body = content[start+idx+len(closeSeq):]
	}
	doc.Had = true

	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		if doc.Data == nil {
			doc.Data = map[string]any{}
		}
	}
	return doc, nil
}

// Bytes reassembles the document. Documents that had no frontmatter and
// still have no data are returned as their body.
func (d *Document) Bytes() ([]byte, error) {
	if !d.Had && len(d.Data) == 0 {
		return d.Body, nil
	}
	nl := d.Newline
	if nl == "" {
		nl = "\n"
	}

	var fm []byte
	if len(d.Data) > 0 {
		var err error
		if fm, err = MarshalYAML(d.Data); err != nil {
			return nil, err
		}
		if nl != "\n" {
			fm = bytes.ReplaceAll(fm, []byte("\n"), []byte(nl))
		}
	}

	out := make([]byte, 0, len(fm)+len(d.Body)+8)
	out = append(out, "---"+nl...)
	out = append(out, fm...)
	out = append(out, "---"+nl...)
	out = append(out, d.Body...)
	return out, nil
}

// MarshalYAML serializes data with two-space indentation, sorted keys and
// LF newlines.
func MarshalYAML(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("serialize frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
