package gitfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the tree must be quiet before changes are emitted.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("gitfs: loader closed")

// Watch emits the ids of selected files that were created or written.
// Bursts of events are debounced and each id is emitted once per burst.
// The channel closes when ctx is cancelled or the loader is closed.
func (l *Loader) Watch(ctx context.Context, log *zap.Logger) (<-chan string, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(l.root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", l.root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := l.addTree(w, l.root); err != nil {
		w.Close()
		return nil, err
	}

	l.mu.Lock()
	l.watchers = append(l.watchers, w)
	l.mu.Unlock()

	out := make(chan string)
	go l.watchLoop(ctx, log, w, out)
	return out, nil
}

// Close stops every active watch.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, w := range l.watchers {
		errs = append(errs, w.Close())
	}
	l.watchers = nil
	return errors.Join(errs...)
}

//nolint:gocognit // select loop with debounce timer
func (l *Loader) watchLoop(ctx context.Context, log *zap.Logger, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			id, ok := l.handleEvent(w, log, event)
			if !ok {
				continue
			}
			pending[id] = true
			timer.Reset(l.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			clear(pending)
			for _, id := range ids {
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleEvent maps a filesystem event to a source id.
// New directories are added to the watch; removals are ignored.
func (l *Loader) handleEvent(w *fsnotify.Watcher, log *zap.Logger, event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	rel, err := filepath.Rel(l.root, event.Name)
	if err != nil || rel == "." {
		return "", false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if isHidden(part) {
			return "", false
		}
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := l.addTree(w, event.Name); err != nil {
				log.Warn("cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
		return "", false
	}

	id := filepath.ToSlash(rel)
	if !l.selector.Accepts(id) {
		return "", false
	}
	return id, true
}

// addTree watches dir and every non-hidden directory below it.
func (l *Loader) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != l.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
