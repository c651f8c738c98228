package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileNotifier appends run summaries to a local notifications file.
// Useful as the composite fallback when no chat channel is configured.
type FileNotifier struct {
	dir string
}

// NewFileNotifier creates a local-file notifier writing under dir.
func NewFileNotifier(dir string) *FileNotifier {
	return &FileNotifier{dir: dir}
}

// Name returns the channel identifier.
func (n *FileNotifier) Name() string { return "file" }

// Send appends the message to <dir>/notifications.log.
func (n *FileNotifier) Send(_ context.Context, msg Message) error {
	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return fmt.Errorf("create notifications dir: %w", err)
	}

	path := filepath.Join(n.dir, "notifications.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	_, writeErr := fmt.Fprintf(f, "%s\n", msg.Text())
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}
