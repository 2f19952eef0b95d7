package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ignoreDuration is how long changes to a file are ignored after writing to it ourselves.
const ignoreDuration = 500 * time.Millisecond

// Watcher is a wrapper for watching file changes in directories.
type Watcher struct {
	watcher   *fsnotify.Watcher
	dirs      map[string]bool
	paths     map[string]bool
	recursive bool

	mu     sync.Mutex
	ignore map[string]time.Time
}

// NewWatcher returns a new Watcher.
func NewWatcher(recursive bool) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:   watcher,
		dirs:      map[string]bool{},
		paths:     map[string]bool{},
		recursive: recursive,
		ignore:    map[string]time.Time{},
	}, nil
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// IgnoreNext ignores the changes caused by writing to filename.
func (w *Watcher) IgnoreNext(filename string) {
	w.mu.Lock()
	w.ignore[filepath.Clean(filename)] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) ignored(filename string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.ignore[filename]; ok {
		if time.Since(t) < ignoreDuration {
			return true
		}
		delete(w.ignore, filename)
	}
	return false
}

// AddPath adds a new file or directory to watch. Sub-directories are watched when recursive.
func (w *Watcher) AddPath(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	w.paths[root] = info.IsDir()

	if info.Mode().IsRegular() {
		return w.addDir(filepath.Dir(root))
	} else if !w.recursive {
		return w.addDir(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if d.IsDir() {
			if path != root && !hidden && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return w.addDir(path)
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// watched returns true if filename is one of the watched files, or is in a watched directory.
func (w *Watcher) watched(filename string) bool {
	for path, isDir := range w.paths {
		if !isDir {
			if path == filename {
				return true
			}
			continue
		}
		rel, err := filepath.Rel(path, filename)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if w.recursive || !strings.ContainsRune(rel, filepath.Separator) {
			return true
		}
	}
	return false
}

// Run watches for file changes and sends the names of written files.
// The channel is closed when the watcher is closed.
func (w *Watcher) Run() chan string {
	files := make(chan string, 10)
	go func() {
		changetimes := map[string]time.Time{}
		for w.watcher.Events != nil && w.watcher.Errors != nil {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					w.watcher.Events = nil
					break
				}

				filename := filepath.Clean(event.Name)
				if !w.watched(filename) || w.ignored(filename) {
					break
				}

				if info, err := os.Stat(filename); err == nil {
					if info.Mode().IsDir() && w.recursive {
						if event.Op&fsnotify.Create == fsnotify.Create {
							if err := w.AddPath(filename); err != nil {
								logger.Error().Err(err).Str("dir", filename).Msg("cannot watch directory")
							}
						}
					} else if info.Mode().IsRegular() {
						if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
							if t, ok := changetimes[filename]; !ok || 100*time.Millisecond < time.Since(t) {
								time.Sleep(100 * time.Millisecond) // wait to make sure write is finished
								files <- filename
								changetimes[filename] = time.Now()
							}
						}
					}
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					w.watcher.Errors = nil
					break
				}
				logger.Error().Err(err).Msg("watch")
			}
		}
		close(files)
	}()
	return files
}
