package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/tdewolff/svgaspect"
	"github.com/tdewolff/svgaspect/normalize"
	"github.com/tdewolff/test"
)

const (
	svgMissing   = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect/></svg>`
	svgCompliant = `<svg preserveAspectRatio="xMidYMid meet" viewBox="0 0 10 10"></svg>`
	svgMalformed = `<svg xmlns="http://www.w3.org/2000/svg"><g></svg>`
)

func reset() {
	m = normalize.Default
	mode = normalize.ModeText
	recursive = false
	hidden = false
	filters = nil
	filtersRegexp = nil
	preserveTimestamps = false
	beforeWrite = func(string) {}
}

func TestFindFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"a.svg":          {},
		"b.SVG":          {},
		"c.png":          {},
		".hidden.svg":    {},
		"dir/d.svg":      {},
		"dir/sub/e.svg":  {},
		".git/f.svg":     {},
		"other/g.svg":    {},
		"other/h.svg.gz": {},
	}

	tests := []struct {
		inputs    []string
		recursive bool
		hidden    bool
		exclude   []string
		files     []string
	}{
		{[]string{"."}, false, false, nil, []string{"a.svg"}},
		{[]string{"."}, false, true, nil, []string{".hidden.svg", "a.svg"}},
		{[]string{"."}, true, false, nil, []string{"a.svg", "dir/d.svg", "dir/sub/e.svg", "other/g.svg"}},
		{[]string{"."}, true, true, nil, []string{".git/f.svg", ".hidden.svg", "a.svg", "dir/d.svg", "dir/sub/e.svg", "other/g.svg"}},
		{[]string{"dir"}, false, false, nil, []string{"dir/d.svg"}},
		{[]string{"dir", "other"}, false, false, nil, []string{"dir/d.svg", "other/g.svg"}},
		{[]string{"dir/"}, true, false, nil, []string{"dir/d.svg", "dir/sub/e.svg"}},
		{[]string{"."}, true, false, []string{"dir/sub"}, []string{"a.svg", "dir/d.svg", "other/g.svg"}},
		{[]string{"."}, true, false, []string{"**/d.svg"}, []string{"a.svg", "dir/sub/e.svg", "other/g.svg"}},
		{[]string{"."}, true, false, []string{"~^(dir|other)"}, []string{"a.svg"}},
		{[]string{"b.SVG"}, false, false, nil, []string{"b.SVG"}},
		{[]string{"a.svg"}, false, false, []string{"*.svg"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.inputs, tt.recursive, tt.hidden, tt.exclude), func(t *testing.T) {
			reset()
			recursive = tt.recursive
			hidden = tt.hidden
			for _, pattern := range tt.exclude {
				re, err := compilePattern(pattern)
				test.Error(t, err)
				filtersRegexp = append(filtersRegexp, re)
			}

			files, _, err := findFiles(fsys, tt.inputs)
			test.Error(t, err)
			test.T(t, strings.Join(files, ","), strings.Join(tt.files, ","))
		})
	}
}

func TestFindFilesErrors(t *testing.T) {
	reset()
	fsys := fstest.MapFS{
		"a.svg": {},
	}
	_, _, err := findFiles(fsys, []string{"missing"})
	test.That(t, errors.Is(err, os.ErrNotExist), "unexpected error:", err)
}

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		pattern  string
		filename string
		match    bool
	}{
		{"a.svg", "a.svg", true},
		{"a.svg", "dir/a.svg", false},
		{"*.svg", "a.svg", true},
		{"*.svg", "dir/a.svg", false},
		{"**.svg", "dir/a.svg", true},
		{"dir/?.svg", "dir/a.svg", true},
		{"~a+\\.svg", "aaa.svg", true},
		{"\\~a.svg", "~a.svg", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.filename, func(t *testing.T) {
			re, err := compilePattern(filepath.FromSlash(tt.pattern))
			test.Error(t, err)
			test.T(t, re.MatchString(filepath.FromSlash(tt.filename)), tt.match)
		})
	}

	_, err := compilePattern("~(")
	test.That(t, err != nil, "must fail on invalid regexp")
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readString(t *testing.T, filename string) string {
	b, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func runDir(t *testing.T, dir string) (string, svgaspect.Summary) {
	files, _, err := findFiles(NewFS(), []string{dir})
	test.Error(t, err)

	out := &bytes.Buffer{}
	p := newPrinter(out)
	summary := svgaspect.Summary{}
	for _, r := range process(p, []string{dir}, files) {
		summary.Add(r)
	}
	p.summary(summary)
	return out.String(), summary
}

func TestProcess(t *testing.T) {
	reset()
	mode = normalize.ModeTree
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.svg":    svgCompliant,
		"b.svg":    svgMissing,
		"c.svg":    svgMalformed,
		"notes.md": svgMissing,
	})

	out, summary := runDir(t, dir)
	test.T(t, summary, svgaspect.Summary{Updated: 1, Skipped: 1, Errors: 1, Total: 3})
	test.String(t, readString(t, filepath.Join(dir, "a.svg")), svgCompliant)
	test.String(t, readString(t, filepath.Join(dir, "b.svg")), `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10" preserveAspectRatio="none"><rect/></svg>`+"\n")
	test.String(t, readString(t, filepath.Join(dir, "c.svg")), svgMalformed)
	test.String(t, readString(t, filepath.Join(dir, "notes.md")), svgMissing)

	lines := strings.Split(out, "\n")
	test.String(t, lines[0], "Processing SVG files in: "+dir)
	test.String(t, lines[1], "Found 3 SVG files")
	test.String(t, lines[3], "- Already has preserveAspectRatio: "+filepath.Join(dir, "a.svg"))
	test.String(t, lines[4], "✓ Updated: "+filepath.Join(dir, "b.svg"))
	test.That(t, strings.HasPrefix(lines[5], "✗ Error processing "+filepath.Join(dir, "c.svg")+": "), "unexpected line:", lines[5])
	test.That(t, strings.HasSuffix(out, "Summary:\n  Updated: 1\n  Already had preserveAspectRatio: 1\n  Errors: 1\n  Total processed: 3\n"), "unexpected summary:", out)

	// second run changes nothing
	_, summary = runDir(t, dir)
	test.T(t, summary, svgaspect.Summary{Updated: 0, Skipped: 2, Errors: 1, Total: 3})
}

func TestProcessText(t *testing.T) {
	reset()
	dir := t.TempDir()
	svg := "<?xml version=\"1.0\"?>\n<svg xmlns=\"http://www.w3.org/2000/svg\"\n     viewBox='0 0 10 10'>\n\t<rect/>\n</svg>\n"
	writeFiles(t, dir, map[string]string{
		"a.svg": svg,
	})

	_, summary := runDir(t, dir)
	test.T(t, summary, svgaspect.Summary{Updated: 1, Total: 1})
	test.String(t, readString(t, filepath.Join(dir, "a.svg")), strings.Replace(svg, "'0 0 10 10'", `'0 0 10 10' preserveAspectRatio="none"`, 1))
}

func TestProcessEmpty(t *testing.T) {
	reset()
	dir := t.TempDir()
	out, summary := runDir(t, dir)
	test.T(t, summary.Total, 0)
	test.That(t, strings.HasPrefix(out, "Processing SVG files in: "+dir+"\nNo SVG files found\n"), "unexpected output:", out)
}

func TestProcessReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	reset()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.svg": svgMissing,
		"b.svg": svgMissing,
		"c.svg": svgCompliant,
	})
	if err := os.Chmod(filepath.Join(dir, "a.svg"), 0444); err != nil {
		t.Fatal(err)
	}

	out, summary := runDir(t, dir)
	test.T(t, summary, svgaspect.Summary{Updated: 1, Skipped: 1, Errors: 1, Total: 3})
	test.String(t, readString(t, filepath.Join(dir, "a.svg")), svgMissing)
	test.That(t, strings.Contains(readString(t, filepath.Join(dir, "b.svg")), `preserveAspectRatio="none"`), "b.svg must be updated")
	test.That(t, strings.Contains(out, "✗ Error processing "+filepath.Join(dir, "a.svg")+": "), "unexpected output:", out)
	test.That(t, strings.Contains(out, "✓ Updated: "+filepath.Join(dir, "b.svg")), "unexpected output:", out)
}

func TestProcessWriteError(t *testing.T) {
	reset()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.svg": svgMissing,
		"b.svg": svgMissing,
		"c.svg": svgCompliant,
	})

	// a.svg disappears between reading and writing
	var written []string
	beforeWrite = func(filename string) {
		written = append(written, filename)
		if filepath.Base(filename) == "a.svg" {
			if err := os.Remove(filename); err != nil {
				t.Fatal(err)
			}
		}
	}
	_, summary := runDir(t, dir)
	test.T(t, summary, svgaspect.Summary{Updated: 1, Skipped: 1, Errors: 1, Total: 3})
	test.T(t, written, []string{filepath.Join(dir, "a.svg"), filepath.Join(dir, "b.svg")})
	test.That(t, strings.Contains(readString(t, filepath.Join(dir, "b.svg")), `preserveAspectRatio="none"`), "b.svg must be updated")

	_, err := os.Stat(filepath.Join(dir, "a.svg"))
	test.That(t, errors.Is(err, os.ErrNotExist), "a.svg must not be recreated:", err)
}

func TestBeforeWrite(t *testing.T) {
	reset()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.svg": svgMissing,
		"b.svg": svgCompliant,
		"c.svg": svgMalformed,
	})

	var written []string
	beforeWrite = func(filename string) {
		written = append(written, filename)
	}
	mode = normalize.ModeTree
	for _, name := range []string{"a.svg", "b.svg", "c.svg"} {
		normalizeFile(filepath.Join(dir, name))
	}
	test.T(t, written, []string{filepath.Join(dir, "a.svg")})
}

func TestNormalizeFile(t *testing.T) {
	reset()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"binary.svg": "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
		"latin1.svg": "<svg xmlns=\"http://www.w3.org/2000/svg\"><text>caf\xe9</text></svg>",
	})

	r := normalizeFile(filepath.Join(dir, "binary.svg"))
	test.T(t, r.Outcome, svgaspect.Failed)
	test.That(t, errors.Is(r.Err, svgaspect.ErrBinary), "unexpected error:", r.Err)

	r = normalizeFile(filepath.Join(dir, "latin1.svg"))
	test.T(t, r.Outcome, svgaspect.Failed)
	test.That(t, errors.Is(r.Err, svgaspect.ErrEncoding), "unexpected error:", r.Err)

	r = normalizeFile(filepath.Join(dir, "missing.svg"))
	test.T(t, r.Outcome, svgaspect.Failed)
	test.That(t, errors.Is(r.Err, os.ErrNotExist), "unexpected error:", r.Err)
}

func TestPreserveTimestamps(t *testing.T) {
	reset()
	dir := t.TempDir()
	filename := filepath.Join(dir, "a.svg")
	writeFiles(t, dir, map[string]string{
		"a.svg": svgMissing,
	})
	modTime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(filename, modTime, modTime); err != nil {
		t.Fatal(err)
	}

	preserveTimestamps = true
	r := normalizeFile(filename)
	test.Error(t, r.Err)
	test.T(t, r.Outcome, svgaspect.Updated)
	test.T(t, r.InSize, len(svgMissing))
	test.T(t, r.OutSize, len(svgMissing)+len(` preserveAspectRatio="none"`))

	info, err := os.Stat(filename)
	test.Error(t, err)
	test.That(t, info.ModTime().Equal(modTime), "must preserve modification time:", info.ModTime())
}

func TestReport(t *testing.T) {
	results := []svgaspect.Result{
		{Name: "a.svg", Outcome: svgaspect.Skipped, InSize: 10, OutSize: 10},
		{Name: "b.svg", Outcome: svgaspect.Updated, InSize: 10, OutSize: 37},
		{Name: "c.svg", Outcome: svgaspect.Failed, Err: svgaspect.ErrNoRoot},
	}
	w := &bytes.Buffer{}
	err := writeReport(w, newReport("text", []string{"icons"}, results))
	test.Error(t, err)
	test.String(t, w.String(), `mode: text
inputs:
  - icons
files:
  - name: a.svg
    outcome: skipped
    in_size: 10
    out_size: 10
  - name: b.svg
    outcome: updated
    in_size: 10
    out_size: 37
  - name: c.svg
    outcome: error
    error: no root element
summary:
  updated: 1
  already_had: 1
  errors: 1
  total: 3
`)
}

func TestPrinter(t *testing.T) {
	w := &bytes.Buffer{}
	p := newPrinter(w)
	test.That(t, !p.useColors, "must not use colors for buffers")

	p.header("dir", 2)
	p.result(svgaspect.Result{Name: "a.svg", Outcome: svgaspect.Updated})
	p.result(svgaspect.Result{Name: "b.svg", Outcome: svgaspect.Failed, Err: svgaspect.ErrNotSVG})
	test.String(t, w.String(), "Processing SVG files in: dir\nFound 2 SVG files\n"+strings.Repeat("-", 50)+"\n✓ Updated: a.svg\n✗ Error processing b.svg: root element is not svg\n")

	p.useColors = true
	test.String(t, p.mark(colorGreen, "✓"), "\033[32m✓\033[0m")
}

func TestIsHidden(t *testing.T) {
	test.That(t, isHidden(".git"))
	test.That(t, isHidden(".a.svg"))
	test.That(t, !isHidden("."))
	test.That(t, !isHidden(".."))
	test.That(t, !isHidden("a.svg"))
	test.That(t, !isHidden(""))
}

func TestExcludes(t *testing.T) {
	var filters []string
	n, err := Excludes{&filters}.Scan([]string{"a", "b", "-r", "c"})
	test.Error(t, err)
	test.T(t, n, 2)
	test.T(t, strings.Join(filters, ","), "a,b")

	filtersRegexp = []*regexp.Regexp{regexp.MustCompile("^a")}
	defer func() { filtersRegexp = nil }()
	test.That(t, !fileFilter("a.svg"))
	test.That(t, fileFilter("b.svg"))
}
