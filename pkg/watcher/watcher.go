// Package watcher triggers callbacks when watched files change.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches files and reports changes after a quiet period.
//
// The parent directory of every file is watched rather than the file
// itself, so editors that save by writing a temporary file and renaming it
// over the original keep being followed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	timers map[string]*time.Timer

	// held while onChange runs
	callMu sync.Mutex
}

// New creates a file watcher. A nil logger uses slog.Default.
func New(debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWatcher{
		watcher:  w,
		debounce: debounce,
		logger:   logger,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Add starts watching files
func (fw *FileWatcher) Add(files ...string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}
		if fw.files[absPath] {
			continue
		}
		if _, err := os.Stat(absPath); err != nil {
			return fmt.Errorf("failed to watch %s: %w", absPath, err)
		}
		dir := filepath.Dir(absPath)
		if !fw.dirs[dir] {
			if err := fw.watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			fw.dirs[dir] = true
		}
		fw.files[absPath] = true
	}
	return nil
}

// Run delivers debounced change notifications to onChange until ctx is done.
// onChange receives the absolute path of the file that changed and runs on
// a timer goroutine. Calls are serialized: a call never starts before the
// previous one, for any file, has returned.
func (fw *FileWatcher) Run(ctx context.Context, onChange func(path string)) error {
	defer fw.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			// Rename and Remove are followed by a Create when a file is
			// replaced; the debounce folds them into one notification
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				fw.schedule(filepath.Clean(event.Name), onChange)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer of one file
func (fw *FileWatcher) schedule(path string, onChange func(string)) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.files[path] {
		return
	}
	if timer, ok := fw.timers[path]; ok {
		timer.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.callMu.Lock()
		defer fw.callMu.Unlock()
		onChange(path)
	})
}

func (fw *FileWatcher) stopTimers() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for path, timer := range fw.timers {
		timer.Stop()
		delete(fw.timers, path)
	}
}

// Files returns the watched absolute paths
func (fw *FileWatcher) Files() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	files := make([]string, 0, len(fw.files))
	for f := range fw.files {
		files = append(files, f)
	}
	return files
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
