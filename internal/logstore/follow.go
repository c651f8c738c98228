package logstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollFallback is the polling interval used when fsnotify delivers no
// events (e.g. on filesystems without inotify support).
const pollFallback = 2 * time.Second

// Follow streams a log file to w as it grows, tail -f style, starting
// from the current beginning of the file. It returns when ctx is
// cancelled.
func Follow(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	// drain existing content first
	if _, err := io.Copy(w, f); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch log: %w", err)
	}

	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if _, err := io.Copy(w, f); err != nil {
				return err
			}

		case <-ticker.C:
			// catch appends the watcher missed
			if _, err := io.Copy(w, f); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}
