package watch

import (
	"context"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the dataset file and flags the loaded copy as stale when
// the file on disk changes. It never reloads anything itself.
type Watcher struct {
	path      string
	stale     atomic.Bool
	changes   atomic.Int64
	changedAt atomic.Int64
	onChange  func(fsnotify.Event)
}

// New watches path. onChange, if not nil, runs on the watcher goroutine after
// each relevant event.
func New(path string, onChange func(fsnotify.Event)) *Watcher {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &Watcher{path: abs, onChange: onChange}
}

// Start watches the file's directory until ctx is done, so replace-by-rename
// is seen too.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				w.handle(evt)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	log.Printf("watcher: watching %s", w.path)
	return nil
}

func (w *Watcher) handle(evt fsnotify.Event) {
	if filepath.Clean(evt.Name) != w.path {
		return
	}
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	w.stale.Store(true)
	w.changes.Add(1)
	w.changedAt.Store(time.Now().UnixNano())
	log.Printf("watcher: dataset changed op=%s path=%s (restart to reload)", evt.Op, evt.Name)
	if w.onChange != nil {
		w.onChange(evt)
	}
}

// Path is the watched file.
func (w *Watcher) Path() string { return w.path }

// Stale reports whether the file changed since the dataset was loaded.
func (w *Watcher) Stale() bool { return w.stale.Load() }

// Changes counts relevant events seen.
func (w *Watcher) Changes() int64 { return w.changes.Load() }

// ChangedAt is the time of the last relevant event, zero if none.
func (w *Watcher) ChangedAt() time.Time {
	ns := w.changedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
