package templates

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the store's template cache whenever a file under
// the watched directory changes. Construction attaches the directory,
// so by the time NewWatcher returns, changes are already being queued.
type Watcher struct {
	store   *Store
	dir     string
	watcher *fsnotify.Watcher
}

// NewWatcher attaches a filesystem watcher to dir. Call Run to drive
// the event loop.
func (s *Store) NewWatcher(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch template dir %q: %w", dir, err)
	}
	return &Watcher{store: s, dir: dir, watcher: watcher}, nil
}

// Run consumes filesystem events until the context is cancelled.
// Watcher errors degrade to log lines; a broken watcher must never
// take the server down with it.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	s := w.store
	s.logger.InfoContext(ctx, "watching template directory", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.DebugContext(ctx, "template change detected",
				slog.String("file", event.Name),
				slog.String("op", event.Op.String()),
			)
			s.Invalidate()
			if s.metrics != nil {
				s.metrics.TemplateReloadsTotal.Add(ctx, 1)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "template watcher error", slog.String("error", err.Error()))
		}
	}
}

// Watch attaches a watcher to dir and blocks consuming its events
// until the context is cancelled.
func (s *Store) Watch(ctx context.Context, dir string) error {
	w, err := s.NewWatcher(dir)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
