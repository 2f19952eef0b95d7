package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tdewolff/svgaspect"
	"golang.org/x/term"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

var ruler = strings.Repeat("-", 50)

// printer writes the human-readable progress and summary.
type printer struct {
	w         io.Writer
	useColors bool
}

func newPrinter(w io.Writer) *printer {
	useColors := os.Getenv("NO_COLOR") == ""
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		useColors = false
	}
	return &printer{w, useColors}
}

func (p *printer) mark(color, mark string) string {
	if p.useColors {
		return color + mark + colorReset
	}
	return mark
}

func (p *printer) header(dir string, n int) {
	fmt.Fprintln(p.w, "Processing SVG files in:", dir)
	if n == 0 {
		fmt.Fprintln(p.w, "No SVG files found")
		return
	}
	fmt.Fprintf(p.w, "Found %d SVG files\n", n)
	fmt.Fprintln(p.w, ruler)
}

func (p *printer) result(r svgaspect.Result) {
	switch r.Outcome {
	case svgaspect.Updated:
		fmt.Fprintf(p.w, "%s Updated: %s\n", p.mark(colorGreen, "✓"), r.Name)
	case svgaspect.Skipped:
		fmt.Fprintf(p.w, "%s Already has preserveAspectRatio: %s\n", p.mark(colorYellow, "-"), r.Name)
	default:
		fmt.Fprintf(p.w, "%s Error processing %s: %v\n", p.mark(colorRed, "✗"), r.Name, r.Err)
	}
}

func (p *printer) summary(s svgaspect.Summary) {
	fmt.Fprintln(p.w, ruler)
	fmt.Fprintln(p.w, "Summary:")
	fmt.Fprintln(p.w, "  Updated:", s.Updated)
	fmt.Fprintln(p.w, "  Already had preserveAspectRatio:", s.Skipped)
	fmt.Fprintln(p.w, "  Errors:", s.Errors)
	fmt.Fprintln(p.w, "  Total processed:", s.Total)
}
