// Package watch reports changes to feature files.
package watch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a debounced batch of changed files.
type Event struct {
	Paths []string
}

// Watcher monitors directories for changes to files matching a pattern.
// Rapid changes are collapsed into a single Event once they settle.
type Watcher struct {
	roots   []string
	pattern string
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	events  chan Event

	// Debouncing
	debounceDelay time.Duration
	timer         *time.Timer
	pending       map[string]struct{}
	pendingMu     sync.Mutex

	// Lifecycle
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	runningMu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long changes must be quiet before an Event is sent.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithLogger sets the logger for watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a watcher for files matching pattern (by base name) under roots.
func New(roots []string, pattern string, opts ...Option) *Watcher {
	w := &Watcher{
		roots:         roots,
		pattern:       pattern,
		logger:        slog.Default(),
		events:        make(chan Event, 16),
		debounceDelay: 150 * time.Millisecond,
		pending:       make(map[string]struct{}),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Every directory under each root is added, since
// fsnotify does not watch recursively.
func (w *Watcher) Start() error {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()

	if w.running {
		return nil
	}
	if len(w.roots) == 0 {
		return errors.New("no directories to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.watcher.Close()
			return err
		}
	}

	w.running = true
	go w.watchLoop()

	return nil
}

// Stop terminates the watcher and closes the events channel.
func (w *Watcher) Stop() {
	w.runningMu.Lock()
	if !w.running {
		w.runningMu.Unlock()
		return
	}
	w.running = false
	w.runningMu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	if w.watcher != nil {
		w.watcher.Close()
	}

	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]struct{})
	close(w.events)
	w.pendingMu.Unlock()
}

// Events returns the channel for receiving change batches.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// addTree watches root and its subdirectories. A root that is a file is
// watched through its parent directory.
func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// watchLoop is the main event loop that processes fsnotify events.
func (w *Watcher) watchLoop() {
	defer close(w.stoppedCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handleFsEvent processes a single fsnotify event.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	// New directories are watched so files created inside them are seen.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op == fsnotify.Chmod {
		return
	}
	if ok, _ := filepath.Match(w.pattern, filepath.Base(event.Name)); !ok {
		return
	}
	w.debounce(event.Name)
}

// debounce records path and restarts the quiet-period timer.
func (w *Watcher) debounce(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush emits the pending paths as one Event.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if len(w.pending) == 0 {
		return
	}
	select {
	case <-w.stopCh:
		return
	default:
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]struct{})

	select {
	case w.events <- Event{Paths: paths}:
	default:
		// Channel full, drop event
	}
}
