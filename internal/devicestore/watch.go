package devicestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change is emitted by Watch when the document for Key was replaced or removed.
type Change struct {
	Key     string
	Removed bool
}

// Watch streams document changes until ctx is cancelled. Writes made by this
// process are reported too; callers compare content if they need to tell them
// apart. The channel is closed when the watcher stops.
func (s *Store) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("devicestore: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "devicestore: watcher close: %v\n", err)
			}
		})
	}

	if err := watcher.Add(s.basePath); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("devicestore: watch %s: %w", s.basePath, err)
	}

	changes := make(chan Change, 16)
	go func() {
		defer close(changes)
		defer closeWatcher()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, ok := s.changeFor(ev)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "devicestore: watch error: %v\n", err)
			}
		}
	}()

	return changes, nil
}

func (s *Store) changeFor(ev fsnotify.Event) (Change, bool) {
	if filepath.Dir(ev.Name) != filepath.Clean(s.basePath) {
		return Change{}, false
	}
	key := filepath.Base(ev.Name)
	if strings.HasPrefix(key, ".") {
		return Change{}, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Key: key, Removed: true}, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return Change{Key: key}, true
	}
	return Change{}, false
}
