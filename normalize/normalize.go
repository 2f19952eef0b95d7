// Package normalize holds the default rewriters for both modes.
package normalize // import "github.com/tdewolff/svgaspect/normalize"

import (
	"github.com/tdewolff/svgaspect"
	"github.com/tdewolff/svgaspect/text"
	"github.com/tdewolff/svgaspect/tree"
)

// Rewrite modes.
const (
	ModeText = "text"
	ModeTree = "tree"
)

// Default rewriters for the text and tree modes
var Default *svgaspect.M

func init() {
	Default = svgaspect.New()
	Default.Add(ModeText, text.Rewriter{})
	Default.Add(ModeTree, tree.Rewriter{})
}

// Text normalizes a string in place, preserving all formatting
func Text(s string) (string, svgaspect.Outcome, error) {
	return Default.String(ModeText, s)
}

// Tree normalizes a string by parsing and serializing it again
func Tree(s string) (string, svgaspect.Outcome, error) {
	return Default.String(ModeTree, s)
}
