package schedule

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of write events editors produce
// when saving, so we never read a half-written file.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the schedule when the file is edited outside the
// menu. It blocks until ctx is cancelled. A reload that fails to
// parse is discarded and the in-memory schedule wins.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: saves that replace the file
	// would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			entries, err := readFile(s.path)
			if err != nil {
				s.logger.Warn("external schedule change could not be loaded", "path", s.path, "err", err)
				return
			}
			s.replace(entries)
			s.logger.Info("schedule reloaded from disk", "entries", len(entries))
		})
	}

	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("schedule watcher error", "err", err)
		}
	}
}
