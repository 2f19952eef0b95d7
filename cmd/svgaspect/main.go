package main

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/djherbis/atime"
	humanize "github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/tdewolff/argp"
	"github.com/tdewolff/svgaspect"
	"github.com/tdewolff/svgaspect/normalize"
	"golang.org/x/term"
)

// Version is the current svgaspect version.
var Version = "built from source"

// Extension is the case-sensitive filename extension of the files that are normalized.
const Extension = ".svg"

var (
	hidden             bool
	list               bool
	m                  *svgaspect.M
	mode               string
	format             string
	filters            []string
	filtersRegexp      []*regexp.Regexp
	recursive          bool
	quiet              bool
	verbose            int
	version            bool
	watch              bool
	preserve           []string
	preserveTimestamps bool
)

type Excludes struct {
	filters *[]string
}

func (scanner Excludes) Scan(s []string) (int, error) {
	n := 0
	for _, item := range s {
		if strings.HasPrefix(item, "-") {
			break
		}
		*scanner.filters = append(*scanner.filters, item)
		n++
	}
	return n, nil
}

func (typenamer Excludes) TypeName() string {
	return "[]string"
}

var logger = zerolog.Nop()

// beforeWrite is called right before a file is rewritten in place.
var beforeWrite = func(filename string) {}

func main() {
	// os.Exit doesn't execute pending defer calls, this is fixed by encapsulating run()
	os.Exit(run())
}

func run() int {
	var inputs []string

	f := argp.New("svgaspect")
	f.AddRest(&inputs, "inputs", "Input directories or files, leave blank to use the working directory")
	f.AddOpt(&mode, "m", "mode", normalize.ModeText, "Rewrite mode, text inserts the attribute in place and tree parses and serializes the document")
	f.AddOpt(&recursive, "r", "recursive", false, "Recursively normalize directories")
	f.AddOpt(&hidden, "a", "all", false, "Normalize all files, including hidden files and files in hidden directories")
	f.AddOpt(Excludes{&filters}, "", "exclude", nil, "Path exclusion pattern, excludes paths from being processed")
	f.AddOpt(&preserve, "p", "preserve", nil, "Preserve options (timestamps, all)")
	f.AddOpt(&format, "", "format", "text", "Output format (text, yaml)")
	f.AddOpt(&watch, "w", "watch", false, "Watch files and normalize upon changes")
	f.AddOpt(&list, "l", "list", false, "List all rewrite modes")
	f.AddOpt(&quiet, "q", "quiet", false, "Quiet mode to suppress all output")
	f.AddOpt(argp.Count{I: &verbose}, "v", "verbose", nil, "Verbose mode, set twice for more verbosity")
	f.AddOpt(&version, "", "version", false, "Version")
	f.Parse()

	m = normalize.Default
	if version {
		if !quiet {
			fmt.Printf("svgaspect %s\n", Version)
		}
		return 0
	} else if list {
		if !quiet {
			for _, name := range m.Modes() {
				fmt.Println(name)
			}
		}
		return 0
	}

	logger = newLogger(os.Stderr)

	if !m.Has(mode) {
		logger.Error().Str("mode", mode).Msg("unknown mode, see --list")
		return 1
	} else if format != "text" && format != "yaml" {
		logger.Error().Str("format", format).Msg("unknown output format")
		return 1
	} else if watch && format == "yaml" {
		logger.Error().Msg("--watch cannot be used together with --format yaml")
		return 1
	}
	for _, option := range preserve {
		switch option {
		case "all", "timestamps":
			preserveTimestamps = true
		default:
			logger.Error().Str("option", option).Msg("unknown preserve option")
			return 1
		}
	}

	var err error
	if 0 < len(filters) {
		filtersRegexp = make([]*regexp.Regexp, len(filters))
		for i, pattern := range filters {
			if filtersRegexp[i], err = compilePattern(pattern); err != nil {
				logger.Error().Err(err).Msg("")
				return 1
			}
		}
	}

	if len(inputs) == 0 {
		inputs = []string{"."}
	}
	for i, input := range inputs {
		inputs[i] = filepath.Clean(input)
	}

	files, roots, err := findFiles(NewFS(), inputs)
	if err != nil {
		logger.Error().Err(err).Msg("")
		return 1
	}
	logger.Info().Str("mode", mode).Int("files", len(files)).Msg("normalize")

	var out io.Writer = os.Stdout
	if quiet || format != "text" {
		out = io.Discard
	}
	p := newPrinter(out)

	start := time.Now()
	results := process(p, inputs, files)
	summary := svgaspect.Summary{}
	for _, r := range results {
		summary.Add(r)
	}
	logger.Info().Dur("duration", time.Since(start)).Msg("finished")

	if watch {
		more, err := watchFiles(p, inputs, roots)
		if err != nil {
			logger.Error().Err(err).Msg("")
			return 1
		}
		results = append(results, more...)
		for _, r := range more {
			summary.Add(r)
		}
	}

	if 0 < len(files) || watch {
		p.summary(summary)
	}
	if format == "yaml" && !quiet {
		if err := writeReport(os.Stdout, newReport(mode, inputs, results)); err != nil {
			logger.Error().Err(err).Msg("")
			return 1
		}
	}
	return 0
}

func newLogger(w *os.File) zerolog.Logger {
	level := zerolog.ErrorLevel
	if quiet {
		level = zerolog.Disabled
	} else if 1 < verbose {
		level = zerolog.InfoLevel
	} else if 0 < verbose {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(w.Fd())),
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).Level(level)
}

// compilePattern compiles a glob pattern, or a regular expression when prefixed with ~
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) == 0 || pattern[0] != '~' {
		if strings.HasPrefix(pattern, `\~`) {
			pattern = pattern[1:]
		}
		pattern = regexp.QuoteMeta(pattern)
		pattern = strings.ReplaceAll(pattern, `\*\*`, `.*`)
		pattern = strings.ReplaceAll(pattern, `\*`, fmt.Sprintf(`[^%c]*`, filepath.Separator))
		pattern = strings.ReplaceAll(pattern, `\?`, fmt.Sprintf(`[^%c]?`, filepath.Separator))
		pattern = "^" + pattern + "$"
	} else {
		pattern = pattern[1:]
	}
	return regexp.Compile(pattern)
}

func isHidden(name string) bool {
	return 1 < len(name) && name[0] == '.' && name != ".."
}

// fileFilter returns false for paths matching an exclusion pattern.
func fileFilter(filename string) bool {
	for _, re := range filtersRegexp {
		if re.MatchString(filename) {
			return false
		}
	}
	return true
}

// fileMatches returns true for SVG files that are not hidden or excluded.
func fileMatches(filename string) bool {
	base := filepath.Base(filename)
	if !strings.HasSuffix(base, Extension) || !hidden && isHidden(base) {
		return false
	}
	return fileFilter(filename)
}

// findFiles returns the SVG files of the inputs in lexical order per input, and the input directories.
// Files passed explicitly are only subject to the exclusion patterns.
func findFiles(fsys fs.FS, inputs []string) ([]string, []string, error) {
	files := []string{}
	roots := []string{}
	for _, input := range inputs {
		input = filepath.Clean(input)
		info, err := fs.Stat(fsys, input)
		if err != nil {
			return nil, nil, err
		}

		if info.Mode().IsRegular() {
			if fileFilter(input) {
				files = append(files, input)
			}
		} else if info.Mode().IsDir() {
			var walkFn func(string, fs.DirEntry, error) error
			walkFn = func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				} else if path == input {
					return nil
				} else if d.IsDir() {
					if !recursive || !hidden && isHidden(d.Name()) || !fileFilter(path) {
						return fs.SkipDir
					}
					return nil
				}

				if d.Type()&fs.ModeSymlink != 0 {
					// follow and dereference symlinks
					info, err := fs.Stat(fsys, path)
					if err != nil {
						logger.Warn().Err(err).Str("path", path).Msg("omitting broken symbolic link")
						return nil
					}
					if info.IsDir() {
						if !recursive || !hidden && isHidden(d.Name()) || !fileFilter(path) {
							return nil
						}
						return fs.WalkDir(fsys, path, walkFn)
					}
					d = fs.FileInfoToDirEntry(info)
				}
				if d.Type().IsRegular() && fileMatches(path) {
					files = append(files, path)
				}
				return nil
			}
			if err := fs.WalkDir(fsys, input, walkFn); err != nil {
				return nil, nil, err
			}
			roots = append(roots, input)
		} else {
			return nil, nil, fmt.Errorf("not a file or directory %s", input)
		}
	}
	return files, roots, nil
}

// process normalizes files one by one, printing a header for each input directory.
func process(p *printer, inputs []string, files []string) []svgaspect.Result {
	results := make([]svgaspect.Result, 0, len(files))
	p.header(strings.Join(inputs, ", "), len(files))
	for _, filename := range files {
		r := normalizeFile(filename)
		p.result(r)
		results = append(results, r)
	}
	return results
}

// normalizeFile rewrites a single file in place. Errors are returned as part of the result.
func normalizeFile(filename string) svgaspect.Result {
	r := svgaspect.Result{Name: filename}

	info, err := os.Stat(filename)
	if err != nil {
		return r.Fail(err)
	}
	b, err := readFile(filename)
	if err != nil {
		return r.Fail(err)
	}
	r.InSize = len(b)
	r.OutSize = len(b)

	w := bytes.NewBuffer(make([]byte, 0, len(b)+64))
	start := time.Now()
	r.Outcome, err = m.Normalize(mode, w, b)
	r.Duration = time.Since(start)
	if err != nil {
		logger.Warn().Err(err).Str("file", filename).Msg("cannot normalize")
		return r.Fail(err)
	} else if r.Outcome != svgaspect.Updated {
		logger.Info().Str("file", filename).Msg("already has " + svgaspect.AttrName)
		return r
	}

	beforeWrite(filename)
	if err := writeFile(filename, w.Bytes()); err != nil {
		return r.Fail(err)
	}
	r.OutSize = w.Len()
	if preserveTimestamps {
		if err := os.Chtimes(filename, atime.Get(info), info.ModTime()); err != nil {
			logger.Warn().Err(err).Str("file", filename).Msg("cannot preserve timestamps")
		}
	}

	speed := "Inf MB"
	if 0 < r.Duration {
		speed = humanize.Bytes(uint64(float64(r.InSize) / r.Duration.Seconds()))
	}
	logger.Info().
		Str("file", filename).
		Dur("duration", r.Duration).
		Str("in", humanize.Bytes(uint64(r.InSize))).
		Str("out", humanize.Bytes(uint64(r.OutSize))).
		Str("speed", speed+"/s").
		Msg("updated")
	return r
}

// watchFiles normalizes files upon changes until interrupted.
func watchFiles(p *printer, inputs, roots []string) ([]svgaspect.Result, error) {
	watcher, err := NewWatcher(recursive)
	if err != nil {
		return nil, err
	}
	defer watcher.Close()

	for _, input := range inputs {
		if err := watcher.AddPath(input); err != nil {
			return nil, err
		}
	}
	// skip the change caused by our own output
	beforeWrite = watcher.IgnoreNext
	defer func() { beforeWrite = func(string) {} }()
	changes := watcher.Run()
	logger.Info().Strs("roots", roots).Msg("watching for changes")

	results := []svgaspect.Result{}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	for changes != nil {
		select {
		case <-c:
			watcher.Close()
		case filename, ok := <-changes:
			if !ok {
				changes = nil
				break
			}
			if !explicitInput(inputs, filename) && !fileMatches(filename) {
				break
			}
			r := normalizeFile(filename)
			p.result(r)
			results = append(results, r)
		}
	}
	return results, nil
}

func explicitInput(inputs []string, filename string) bool {
	for _, input := range inputs {
		if input == filename {
			return true
		}
	}
	return false
}
