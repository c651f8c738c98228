// Package logstore manages the per-run log files under the logs
// directory: listing by the timestamp embedded in the name, pruning
// old files, and live tailing.
package logstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// logNamePattern matches <task>_<YYYYMMDD>_<HHMMSS>.log.
var logNamePattern = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})\.log$`)

const nameTimestampLayout = "20060102_150405"

// Entry is one log file with the timestamp parsed from its name.
type Entry struct {
	Path      string
	Task      string
	StartedAt time.Time
	Size      int64
}

// Store reads the logs directory.
type Store struct {
	dir string
}

// New creates a store over dir. The directory need not exist yet.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the logs directory path.
func (s *Store) Dir() string { return s.dir }

// List returns all log files, newest first. A missing directory yields
// an empty list.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logs dir: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		m := logNamePattern.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation(nameTimestampLayout, m[2], time.Local)
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:      filepath.Join(s.dir, de.Name()),
			Task:      m[1],
			StartedAt: ts,
			Size:      info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})
	return entries, nil
}

// Latest returns the newest log entry, or nil when none exist.
func (s *Store) Latest() (*Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Prune deletes all but the newest keep log files and returns the
// number removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[keep:] {
		if err := os.Remove(e.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Path, err)
		}
		removed++
	}
	return removed, nil
}
