// Package svgaspect adds a preserveAspectRatio="none" attribute to the root element of SVG documents that lack one.
package svgaspect // import "github.com/tdewolff/svgaspect"

import (
	"bytes"
	"io"
	"sort"

	"github.com/pkg/errors"
)

const (
	// AttrName is the attribute that is ensured on the root element.
	AttrName = "preserveAspectRatio"
	// AttrValue is the value set when the attribute is absent.
	AttrValue = "none"
	// Namespace is the SVG namespace URI.
	Namespace = "http://www.w3.org/2000/svg"
)

var (
	// ErrNotExist is returned when no rewriter exists for a mode.
	ErrNotExist = errors.New("rewriter does not exist for mode")
	// ErrNoRoot is returned when a document has no root element.
	ErrNoRoot = errors.New("no root element")
	// ErrNotSVG is returned when the root element is not an svg element.
	ErrNotSVG = errors.New("root element is not svg")
	// ErrBinary is returned for files with binary content.
	ErrBinary = errors.New("binary content")
	// ErrEncoding is returned for files that are not UTF-8 encoded.
	ErrEncoding = errors.New("not UTF-8 encoded")
)

////////////////////////////////////////////////////////////////

// Rewriter is the interface for SVG attribute rewriters.
// Rewrite reports false without writing anything when the root element of b already declares the attribute,
// otherwise it writes b with the attribute added to w and reports true.
type Rewriter interface {
	Rewrite(io.Writer, []byte) (bool, error)
}

// RewriterFunc is a function that implements the Rewriter interface.
type RewriterFunc func(io.Writer, []byte) (bool, error)

// Rewrite calls f(w, b).
func (f RewriterFunc) Rewrite(w io.Writer, b []byte) (bool, error) {
	return f(w, b)
}

// M holds a map of mode => rewriter.
type M struct {
	rewriter map[string]Rewriter
}

// New returns a new M.
func New() *M {
	return &M{
		map[string]Rewriter{},
	}
}

// Add adds a rewriter to the mode => rewriter map.
func (m *M) Add(mode string, r Rewriter) {
	m.rewriter[mode] = r
}

// AddFunc adds a rewrite function to the mode => rewriter map.
func (m *M) AddFunc(mode string, f RewriterFunc) {
	m.rewriter[mode] = f
}

// Modes returns the registered modes in sorted order.
func (m *M) Modes() []string {
	modes := make([]string, 0, len(m.rewriter))
	for mode := range m.rewriter {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// Has returns true if a rewriter exists for mode.
func (m *M) Has(mode string) bool {
	_, ok := m.rewriter[mode]
	return ok
}

// Normalize sniffs b and rewrites it with the rewriter of the given mode.
// On Updated the new document has been written to w, on Skipped or Failed nothing has been written.
func (m *M) Normalize(mode string, w io.Writer, b []byte) (Outcome, error) {
	r, ok := m.rewriter[mode]
	if !ok {
		return Failed, errors.Wrapf(ErrNotExist, "mode %q", mode)
	}
	if err := Sniff(b); err != nil {
		return Failed, err
	}

	updated, err := r.Rewrite(w, b)
	if err != nil {
		return Failed, err
	} else if !updated {
		return Skipped, nil
	}
	return Updated, nil
}

// Bytes normalizes a byte slice. It returns b itself unless it was updated.
func (m *M) Bytes(mode string, b []byte) ([]byte, Outcome, error) {
	out := &bytes.Buffer{}
	outcome, err := m.Normalize(mode, out, b)
	if outcome != Updated {
		return b, outcome, err
	}
	return out.Bytes(), outcome, nil
}

// String normalizes a string.
func (m *M) String(mode string, s string) (string, Outcome, error) {
	b, outcome, err := m.Bytes(mode, []byte(s))
	return string(b), outcome, err
}
