package tree

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tdewolff/svgaspect"
)

// Rewriter is the tree rewriter.
type Rewriter struct{}

// Rewrite parses b and, when the root element lacks the attribute, adds it and writes the serialized document to w.
func Rewrite(w io.Writer, b []byte) (bool, error) {
	return (Rewriter{}).Rewrite(w, b)
}

// Rewrite parses b and, when the root element lacks the attribute, adds it and writes the serialized document to w.
func (Rewriter) Rewrite(w io.Writer, b []byte) (bool, error) {
	doc, err := Parse(b)
	if err != nil {
		return false, err
	}

	root := doc.Root
	if root.LocalName() != "svg" {
		return false, errors.Wrapf(svgaspect.ErrNotSVG, "root element is <%s>", root.Name)
	} else if _, ok := root.Attr(svgaspect.AttrName); ok {
		return false, nil
	} else if ns := root.Namespace(); ns != svgaspect.Namespace {
		return false, errors.Wrapf(svgaspect.ErrNotSVG, "root element <%s> is in namespace %q", root.Name, ns)
	}

	root.SetAttr(svgaspect.AttrName, svgaspect.AttrValue)
	if _, err := doc.WriteTo(w); err != nil {
		return false, err
	}
	return true, nil
}
