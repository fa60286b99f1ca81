package template

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const debounceWindow = 100 * time.Millisecond

// ChangeCallback is invoked once per settled file change.
type ChangeCallback func(path string)

// Watcher monitors a template directory and reports settled file changes.
// Rapid successive events on the same path are debounced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onChange ChangeCallback

	done     chan struct{}
	stopOnce sync.Once

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, onChange ChangeCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:        fsw,
		dir:            dir,
		onChange:       onChange,
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch template directory: %w", err)
	}

	go w.eventLoop()

	log.Info().Str("path", w.dir).Msg("Template watcher started")
	return nil
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	clear(w.debounceTimers)
	w.debounceMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Template watcher error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := filepath.Clean(event.Name)

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[path]; exists {
		timer.Stop()
	}
	w.debounceTimers[path] = time.AfterFunc(debounceWindow, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(path)
	})
}
