package lexicon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces bursts of write events into one reload.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the flat data files whenever one of them is written, until
// ctx is done or the lexicon is closed. The directories holding the files
// are watched so that editors replacing a file by rename are noticed too.
func (l *Lexicon) Watch(ctx context.Context) error {
	if l.flat == nil || len(l.flat.Paths()) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	names := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, path := range l.flat.Paths() {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		names[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch directory: %w", err)
		}
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer watcher.Close()
		l.watchLoop(ctx, watcher, names)
	}()
	return nil
}

func (l *Lexicon) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, names map[string]bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-l.closing:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !names[name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				if err := l.Reload(ctx); err != nil {
					l.logger.Warn("lexicon reload failed", "error", err)
					return
				}
				l.logger.Info("lexicon reloaded", "file", name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("lexicon watcher error", "error", err)
		}
	}
}
