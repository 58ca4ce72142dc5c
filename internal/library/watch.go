package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces the burst of write events a single external
// save produces into one reload.
const debounceInterval = 500 * time.Millisecond

// Watch runs an fsnotify watcher on the order file's directory until ctx
// is cancelled. When the order file changes on disk (an external editor,
// the simulator itself), onChange is called after a short debounce so
// the caller can trigger a reload. Changes to other files in the
// directory, including our own backups, are ignored.
func (m *Manager) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(m.orderPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(m.orderPath)

	m.logger.Info("watcher: started", slog.String("file", m.orderPath))

	var debounce *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(debounceInterval)
			fire = debounce.C
		} else {
			debounce.Reset(debounceInterval)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			m.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			m.logger.Debug("watcher: order file changed", slog.String("file", target))
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			// Atomic rewrites arrive as Create (rename over the target);
			// in-place edits as Write.
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
