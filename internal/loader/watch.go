package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before reporting a change.
const DefaultDebounce = 100 * time.Millisecond

// WatchExtensions are the file types a watched directory reports on.
var WatchExtensions = map[string]bool{
	".mustache": true,
	".tpl":      true,
	".tmpl":     true,
	".html":     true,
	".txt":      true,
	".md":       true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".toml":     true,
	".env":      true,
	".star":     true,
}

// Watcher reports changes to template and vars files.
// Paths may be files or directories; directories are watched recursively.
type Watcher struct {
	paths    []string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher over paths.
func NewWatcher(paths []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{paths: paths, debounce: DefaultDebounce, logger: logger}
}

// Run blocks until ctx is cancelled, calling onChange with the last changed
// file after each debounced burst of writes. Calls to onChange never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Single files are watched through their directory so editors that
	// replace files on save are still seen.
	files := make(map[string]bool)
	var dirs []string
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := watchDirRecursive(watcher, abs); err != nil {
				return err
			}
			dirs = append(dirs, abs)
			continue
		}
		files[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						w.logger.Error("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			if !relevant(event.Name, files, dirs) {
				continue
			}

			name := event.Name
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				w.logger.Debug("file changed", "file", name)
				onChange(name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether a change to path should trigger a callback:
// an explicitly watched file, or a known file type inside a watched directory.
func relevant(path string, files map[string]bool, dirs []string) bool {
	if files[path] {
		return true
	}
	if !WatchExtensions[filepath.Ext(path)] {
		return false
	}
	for _, dir := range dirs {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
