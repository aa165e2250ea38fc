// Package reload detects configuration file modifications by polling file
// metadata. A changed file triggers a wholesale card replacement in the
// running service; the service itself is never restarted.
package reload

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher tracks one configuration file and detects modifications.
type Watcher struct {
	mu    sync.Mutex
	path  string
	state fileState
}

// NewWatcher builds a watcher for the given configuration file.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher := &Watcher{path: abs}
	watcher.Reset()
	return watcher, nil
}

// Reset records the current file metadata as the baseline.
func (w *Watcher) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	info, err := os.Stat(w.path)
	if err != nil || info.IsDir() {
		w.state = fileState{}
		return
	}
	w.state = fileState{modTime: info.ModTime(), size: info.Size()}
}

// Changed reports whether the file was modified since the last Reset. A
// vanished file counts as changed.
func (w *Watcher) Changed() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	info, err := os.Stat(w.path)
	if err != nil {
		return true
	}
	if info.IsDir() {
		return false
	}
	return info.ModTime().After(w.state.modTime) || info.Size() != w.state.size
}

// Path returns the absolute path under watch.
func (w *Watcher) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}
