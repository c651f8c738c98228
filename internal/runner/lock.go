package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const lockFileName = ".stockrun.lock"

// LockInfo describes the owner of a workdir lock.
type LockInfo struct {
	PID       int       `json:"pid"`
	Task      string    `json:"task"`
	StartedAt time.Time `json:"started_at"`
}

// Acquire creates a lock file in workDir so overlapping invocations
// fail fast instead of colliding on log names or report output.
// If the lock exists and the owning PID is dead, the stale lock is reclaimed.
func Acquire(workDir, task string) error {
	lockPath := filepath.Join(workDir, lockFileName)

	info := LockInfo{
		PID:       os.Getpid(),
		Task:      task,
		StartedAt: time.Now(),
	}

	err := writeLock(lockPath, &info)
	if err == nil {
		return nil
	}

	if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create lock %s: %w", lockPath, err)
	}

	// lock exists — check if stale
	existing, readErr := ReadLock(workDir)
	if readErr != nil {
		return fmt.Errorf("workdir %s is locked (could not read lock: %v)", workDir, readErr)
	}

	if isProcessAlive(existing.PID) {
		return fmt.Errorf("another run in progress: PID %d since %s (task %s)",
			existing.PID, existing.StartedAt.Format(time.RFC3339), existing.Task)
	}

	// stale lock — reclaim
	slog.Warn("reclaiming stale lock", "workdir", workDir, "stale_pid", existing.PID, "task", existing.Task)
	if err := os.Remove(lockPath); err != nil {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	if err := writeLock(lockPath, &info); err != nil {
		return fmt.Errorf("acquire after stale removal: %w", err)
	}

	return nil
}

// Release removes the lock file from workDir. It is idempotent.
func Release(workDir string) {
	lockPath := filepath.Join(workDir, lockFileName)
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to release lock", "path", lockPath, "error", err)
	}
}

// ReadLock reads the lock file from workDir.
func ReadLock(workDir string) (*LockInfo, error) {
	lockPath := filepath.Join(workDir, lockFileName)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}

	return &info, nil
}

// writeLock atomically creates the lock file using O_CREATE|O_EXCL.
func writeLock(path string, info *LockInfo) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	encErr := json.NewEncoder(f).Encode(info)
	closeErr := f.Close()
	if encErr != nil {
		return encErr
	}
	return closeErr
}

// isProcessAlive checks if a process with the given PID exists and is running.
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 checks existence without actually sending a signal
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
