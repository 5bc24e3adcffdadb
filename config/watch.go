package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches a config file and delivers validated replacements
// to a callback. The file is re-read only after it has been quiet for
// a full cooldown, and invalid or empty edits are skipped, so a
// half-saved file never loosens a running gate's limits.
type Reloader struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher
	onChange func(*Config)
}

// NewReloader builds a watcher for path. cooldown is the quiet period
// after the last change before the file is re-read; it absorbs the
// editor save-twice burst without losing the final edit. Zero means
// one second.
func NewReloader(path string, cooldown time.Duration, onChange func(*Config)) (*Reloader, error) {
	if cooldown <= 0 {
		cooldown = time.Second
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files by
	// rename, which drops a file-level watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return &Reloader{
		path:     path,
		cooldown: cooldown,
		watcher:  w,
		onChange: onChange,
	}, nil
}

// Run blocks delivering reloads until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Each change to the watched file arms (or re-arms) the debounce
	// timer; the file is read when the timer fires. Acting on the
	// timer rather than the event keeps a save in progress from being
	// read mid-write, and an edit landing during the quiet window is
	// deferred, never dropped.
	debounce := time.NewTimer(r.cooldown)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(r.cooldown)
		case <-debounce.C:
			cfg, err := LoadFromFile(r.path)
			if err != nil {
				// Keep running on the previous config.
				continue
			}
			if r.onChange != nil {
				r.onChange(cfg)
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
