// Package watch reloads file-backed state when files change on disk: the
// catalog JSON served by catalog.FileSource and the asset directory feeding
// the CSS/JS bundles.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the bursts of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Action runs once per settled change. removed reports that path is gone.
type Action func(path string, removed bool)

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore holds doublestar patterns matched against base names.
	Ignore []string
}

// DefaultOptions skips editor swap files and VCS directories.
func DefaultOptions() Options {
	return Options{
		Debounce: DefaultDebounce,
		Ignore:   []string{".git", "*.swp", "*~", ".#*", "4913"},
	}
}

type route struct {
	// file is set for single-file routes, root for directory routes.
	file   string
	root   string
	action Action
}

func (r route) matches(path string) bool {
	if r.file != "" {
		return path == r.file
	}
	return path == r.root || strings.HasPrefix(path, r.root+string(filepath.Separator))
}

// Watcher dispatches debounced file events to Actions.
type Watcher struct {
	fsw    *fsnotify.Watcher
	opts   Options
	logger *slog.Logger

	routesMu sync.RWMutex
	routes   []route

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a Watcher. Call Start to begin dispatching.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %s", pattern)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:    fsw,
		opts:   opts,
		logger: logger,
		timers: make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// WatchFile calls action when path changes. The parent directory is
// watched, so files replaced by rename are still seen.
func (w *Watcher) WatchFile(path string, action Action) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.addRoute(route{file: abs, action: action})
	w.logger.Debug("watching file", "path", abs)
	return nil
}

// WatchDir calls action for every file changed under root, including
// directories created later.
func (w *Watcher) WatchDir(root string, action Action) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", abs, err)
	}
	if err := w.addTree(abs); err != nil {
		return err
	}
	w.addRoute(route{root: abs, action: action})
	w.logger.Debug("watching directory", "root", abs)
	return nil
}

func (w *Watcher) addRoute(r route) {
	w.routesMu.Lock()
	w.routes = append(w.routes, r)
	w.routesMu.Unlock()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Start runs the event loop in the background.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return nil
	}
	w.started = true
	go w.eventLoop()
	w.logger.Info("file watcher started", "debounce", w.opts.Debounce)
	return nil
}

// Stop ends the event loop and cancels pending actions. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)
	w.mu.Unlock()

	w.timersMu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timersMu.Unlock()

	err := w.fsw.Close()
	if started {
		<-w.done
	}
	w.logger.Info("file watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.ignored(path) {
		return
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.underDirRoute(path) {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	var removed bool
	switch {
	case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create):
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		removed = true
	default:
		return
	}

	actions := w.actionsFor(path)
	if len(actions) == 0 {
		return
	}
	w.logger.Debug("file event", "op", event.Op.String(), "path", path)
	w.schedule(path, removed, actions)
}

// schedule runs actions after the debounce window; a newer event for the
// same path restarts the window and decides removed.
func (w *Watcher) schedule(path string, removed bool, actions []Action) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.opts.Debounce, func() {
		w.timersMu.Lock()
		if w.timers[path] != timer {
			w.timersMu.Unlock()
			return
		}
		delete(w.timers, path)
		w.timersMu.Unlock()

		// A remove followed by a recreate settles as a change.
		gone := removed
		if _, err := os.Stat(path); err == nil {
			gone = false
		}
		for _, action := range actions {
			action(path, gone)
		}
	})
	w.timers[path] = timer
}

func (w *Watcher) actionsFor(path string) []Action {
	w.routesMu.RLock()
	defer w.routesMu.RUnlock()
	var out []Action
	for _, r := range w.routes {
		if r.matches(path) {
			out = append(out, r.action)
		}
	}
	return out
}

func (w *Watcher) underDirRoute(path string) bool {
	w.routesMu.RLock()
	defer w.routesMu.RUnlock()
	for _, r := range w.routes {
		if r.root != "" && r.matches(path) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.Ignore {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Stats reports watcher state.
type Stats struct {
	Pending int  `json:"pending"`
	Running bool `json:"running"`
}

// Stats returns the number of debounced changes not yet dispatched.
func (w *Watcher) Stats() Stats {
	w.timersMu.Lock()
	pending := len(w.timers)
	w.timersMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Pending: pending, Running: w.started && !w.stopped}
}
