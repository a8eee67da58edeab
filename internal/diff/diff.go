// Package diff renders colored differences between two values.
package diff

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Method selects how values are compared.
type Method string

const (
	// MethodJSON diffs the indented JSON encoding line by line.
	MethodJSON Method = "json"
	// MethodLines diffs text line by line.
	MethodLines Method = "lines"
	// MethodChars diffs text character by character.
	MethodChars Method = "chars"
)

// Methods lists the supported methods.
var Methods = []Method{MethodJSON, MethodLines, MethodChars}

// ParseMethod validates a method name. Empty selects MethodJSON.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodJSON, nil
	}
	for _, m := range Methods {
		if string(m) == strings.ToLower(s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown diff method %q", s)
}

// Compute returns the segments transforming a into b.
func Compute(a, b any, method Method) ([]diffmatchpatch.Diff, error) {
	if method == "" {
		method = MethodJSON
	}
	dmp := diffmatchpatch.New()
	switch method {
	case MethodJSON:
		ta, err := encodeJSON(a)
		if err != nil {
			return nil, err
		}
		tb, err := encodeJSON(b)
		if err != nil {
			return nil, err
		}
		return lineDiff(dmp, ta, tb), nil
	case MethodLines:
		return lineDiff(dmp, text(a), text(b)), nil
	case MethodChars:
		return dmp.DiffMain(text(a), text(b), false), nil
	default:
		return nil, fmt.Errorf("unknown diff method %q", method)
	}
}

func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, a, b string) []diffmatchpatch.Diff {
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	return dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
}

func encodeJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode diff operand: %w", err)
	}
	return string(out) + "\n", nil
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		out, err := encodeJSON(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return out
	}
}

// Printer writes colored segments: gray for unchanged, green for added and
// red for removed text.
type Printer struct {
	w       io.Writer
	equal   lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
}

// NewPrinter creates a Printer whose color profile follows w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	style := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color)).TabWidth(lipgloss.NoTabConversion)
	}
	return &Printer{
		w:       w,
		equal:   style("8"),
		added:   style("2"),
		removed: style("1"),
	}
}

// Print writes every segment followed by a blank line.
func (p *Printer) Print(diffs []diffmatchpatch.Diff) {
	for _, d := range diffs {
		style := p.equal
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			style = p.added
		case diffmatchpatch.DiffDelete:
			style = p.removed
		case diffmatchpatch.DiffEqual:
		}
		_, _ = io.WriteString(p.w, paint(style, d.Text))
	}
	_, _ = io.WriteString(p.w, "\n\n")
}

// paint styles each line separately so multi-line segments are not padded
// to a common width.
func paint(style lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
