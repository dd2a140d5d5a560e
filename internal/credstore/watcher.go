package credstore

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"payrollctl/pkg/logging"
)

const (
	// DefaultDebounceInterval is how long the watcher waits after the last
	// file event before calling OnChange.
	DefaultDebounceInterval = 500 * time.Millisecond

	// DefaultPollInterval is the fallback polling interval when fsnotify is
	// not available.
	DefaultPollInterval = 5 * time.Second
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dir is the credential directory.
	Dir string

	// Files are the base names to react to.
	Files []string

	// Debounce overrides DefaultDebounceInterval.
	Debounce time.Duration

	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration

	// OnChange is called after a burst of changes has settled.
	OnChange func()
}

// Watcher calls OnChange when another process rewrites or removes the
// persisted session files. It uses fsnotify and falls back to polling.
type Watcher struct {
	mu sync.Mutex

	config WatcherConfig

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	// lastSeen is used only while polling; a zero time means absent.
	lastSeen map[string]time.Time

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher returns a stopped watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		config:   config,
		lastSeen: make(map[string]time.Time),
	}
}

// WatchFilePersister is a shortcut for watching p's directory.
func WatchFilePersister(p *FilePersister, onChange func()) *Watcher {
	return NewWatcher(WatcherConfig{
		Dir:      p.Dir(),
		Files:    p.FileNames(),
		OnChange: onChange,
	})
}

// Start begins watching. Starting a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredentialWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(w.stopCh)
		return nil
	}

	if err := watcher.Add(w.config.Dir); err != nil {
		logging.Warn("CredentialWatcher", "Failed to watch directory %s, falling back to polling: %v", w.config.Dir, err)
		watcher.Close()
		go w.pollForChanges(w.stopCh)
		return nil
	}
	w.fsWatcher = watcher

	go w.processEvents(w.stopCh, watcher.Events, watcher.Errors)

	logging.Debug("CredentialWatcher", "Watching %s for session changes", w.config.Dir)
	return nil
}

func (w *Watcher) processEvents(stopCh <-chan struct{}, eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.isRelevantFile(filepath.Base(event.Name)) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredentialWatcher", "Session file changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *Watcher) isRelevantFile(name string) bool {
	for _, f := range w.config.Files {
		if f == name {
			return true
		}
	}
	return false
}

// triggerDebounced coalesces the several file events of one login or logout
// into a single callback.
func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

func (w *Watcher) pollForChanges(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.checkForChanges()

	for {
		select {
		case <-stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredentialWatcher", "Session file changes detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// checkForChanges compares modification times (and presence) with the last
// poll. The first call only records the baseline.
func (w *Watcher) checkForChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	first := len(w.lastSeen) == 0
	changed := false

	for _, name := range w.config.Files {
		var mod time.Time
		if info, err := os.Stat(filepath.Join(w.config.Dir, name)); err == nil {
			mod = info.ModTime()
		}
		if last, ok := w.lastSeen[name]; ok && !last.Equal(mod) {
			changed = true
		}
		w.lastSeen[name] = mod
	}

	return changed && !first
}

// Stop stops the watcher and cancels any pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredentialWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Debug("CredentialWatcher", "Stopped watching %s", w.config.Dir)
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
