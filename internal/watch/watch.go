// Package watch monitors the results directory tree for test-result
// document changes, so the refresh loop can re-aggregate as soon as new
// results land instead of waiting for the next interval tick.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change represents a detected change to a result document.
type Change struct {
	Path string // Absolute path of the changed .jsonld file
}

// Watcher monitors the results tree for *.jsonld changes using fsnotify.
// fsnotify does not recurse, so component subdirectories are added to the
// watch set at start and as they appear.
type Watcher struct {
	Dir     string
	Changes <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a new watcher for the given results directory.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 16)
	w := &Watcher{
		Dir:     dir,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching the results tree for changes.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	err := filepath.WalkDir(w.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file. Artifact downloads write in
	// several bursts; one change per settled file is enough.
	const debounce = 200 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.notify(file)
				}
				return
			}

			// New component directory: extend the watch set.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
					continue
				}
			}

			if !isResultFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				pending[event.Name] = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					w.notify(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Ignore watch errors; they're non-fatal.
		}
	}
}

// notify sends without blocking. The consumer drains the channel and
// regenerates once per batch, so a dropped notification is coalesced into
// one already queued; a blocking send could wedge Stop if the consumer has
// already exited.
func (w *Watcher) notify(path string) {
	select {
	case w.changes <- Change{Path: path}:
	default:
	}
}

func isResultFile(name string) bool {
	return strings.HasSuffix(filepath.Base(name), ".jsonld")
}
