package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Reloadable is a component rebuilt from the notebooks that changed.
type Reloadable interface {
	Reload(ctx context.Context, changed []string) error
}

// Watcher monitors notebooks and reports debounced batches of changed paths.
type Watcher struct {
	watcher      *fsnotify.Watcher
	match        func(path string) bool // Paths worth reporting
	skipDir      func(path string) bool // Directories never added to the watch
	recursive    bool                   // Watch directories created later
	debounceTime time.Duration
	callback     func(files []string)

	cancel   context.CancelFunc
	stopOnce sync.Once
	doneCh   chan struct{}

	// Only touched by the watch goroutine
	accumulated   map[string]bool
	debounceTimer *time.Timer
}

// NewFileWatcher watches specific notebook files. Their parent directories
// are watched so that editors replacing the file by rename are seen too.
func NewFileWatcher(debounce time.Duration, files ...string) (*Watcher, error) {
	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	w, err := newWatcher(debounce, func(path string) bool { return targets[path] }, nil, false)
	if err != nil {
		return nil, err
	}

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.watcher.Close()
			return nil, err
		}
	}
	return w, nil
}

// NewDirWatcher watches directory trees and reports paths accepted by match.
// Directories created after start are added to the watch. Directories for
// which skipDir returns true are not descended into; a nil skipDir watches
// everything.
func NewDirWatcher(debounce time.Duration, dirs []string, match, skipDir func(path string) bool) (*Watcher, error) {
	w, err := newWatcher(debounce, match, skipDir, true)
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.addDirectoriesRecursively(dir); err != nil {
			w.watcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func newWatcher(debounce time.Duration, match, skipDir func(string) bool, recursive bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:      fsw,
		match:        match,
		skipDir:      skipDir,
		recursive:    recursive,
		debounceTime: debounce,
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins watching, calling callback with sorted, deduplicated paths
// once no event has arrived for the debounce period.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) {
	w.callback = callback

	ctx, w.cancel = context.WithCancel(ctx)
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			// Never started
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	fireCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if w.recursive && event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}

			if !w.shouldProcessEvent(event) {
				continue
			}

			w.accumulated[filepath.Clean(event.Name)] = true
			w.resetDebounceTimer(fireCh)

		case <-fireCh:
			w.flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// flush hands the accumulated batch to the callback.
func (w *Watcher) flush() {
	if len(w.accumulated) == 0 {
		return
	}

	files := make([]string, 0, len(w.accumulated))
	for file := range w.accumulated {
		files = append(files, file)
	}
	sort.Strings(files)
	w.accumulated = make(map[string]bool)

	if w.callback != nil {
		w.callback(files)
	}
}

// resetDebounceTimer restarts the quiet period.
func (w *Watcher) resetDebounceTimer(fireCh chan struct{}) {
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceTime, func() {
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

// shouldProcessEvent keeps writes, creates, removes and renames of matching paths.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.match(filepath.Clean(event.Name))
}

// WatchList returns the watched directories, sorted.
func (w *Watcher) WatchList() []string {
	list := w.watcher.WatchList()
	sort.Strings(list)
	return list
}

// addDirectoriesRecursively adds the directories in the tree to the watcher,
// skipping those rejected by skipDir.
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// If it's the root path, fail immediately
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if w.skipDir != nil && w.skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

// ReloadOnChange adapts a Reloadable into a Start callback. Failed reloads
// are logged and the previous state is kept.
func ReloadOnChange(ctx context.Context, r Reloadable) func(files []string) {
	return func(files []string) {
		start := time.Now()
		if err := r.Reload(ctx, files); err != nil {
			log.Printf("Error reloading %d notebook(s): %v (keeping old state)", len(files), err)
			return
		}
		log.Printf("Reloaded %d notebook(s) in %v", len(files), time.Since(start))
	}
}
