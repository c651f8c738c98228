// Package runner executes one report invocation: it prepares a
// timestamped log file, spawns the child process with UTF-8 text I/O
// forced on the child's environment only, captures combined output,
// and returns a tagged result.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampLayout names log files at second granularity.
const timestampLayout = "20060102_150405"

// bannerLayout is the human-readable form used inside log files.
const bannerLayout = "2006-01-02 15:04:05"

// Job describes one invocation of the report script.
type Job struct {
	Name        string            // task name, prefixes the log file
	WorkDir     string            // directory the child runs in
	Command     []string          // argv: interpreter followed by script and args
	Env         map[string]string // extra child environment, overrides defaults
	LogsDir     string            // defaults to <WorkDir>/logs
	MaxRuntime  time.Duration     // kill the child after this long, 0 = no limit
	IdleTimeout time.Duration     // kill the child after this long without output, 0 = off
}

// Run executes the job synchronously and always returns a Result; every
// failure mode is a tagged outcome rather than a returned error.
func Run(ctx context.Context, j Job) *Result {
	start := time.Now()
	result := &Result{
		RunID:     uuid.New().String(),
		Task:      j.Name,
		StartedAt: start,
	}

	logsDir := j.LogsDir
	if logsDir == "" {
		logsDir = filepath.Join(j.WorkDir, "logs")
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return setupFailed(result, fmt.Sprintf("create logs dir: %v", err))
	}

	result.LogPath = filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", j.Name, start.Format(timestampLayout)))
	f, err := os.OpenFile(result.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return setupFailed(result, fmt.Sprintf("open log file: %v", err))
	}
	defer func() { _ = f.Close() }()

	writeBanner(f, j, start)

	if len(j.Command) == 0 {
		setupFailed(result, "empty command")
		writeTrailer(f, fmt.Sprintf("[ERROR] %s %s", result.EndedAt.Format(bannerLayout), result.Reason))
		return result
	}

	if j.MaxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.MaxRuntime)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Debug("spawning child", "task", j.Name, "command", strings.Join(j.Command, " "), "log", result.LogPath)

	cmd := exec.CommandContext(ctx, j.Command[0], j.Command[1:]...)
	cmd.Dir = j.WorkDir
	cmd.Env = childEnv(j.Env)
	setupProcessGroup(cmd)

	// One writer for both streams keeps the log interleaved the way
	// the child produced it; os/exec serializes writes when Stdout
	// and Stderr are the same value.
	w := newIdleTimeoutWriter(f, j.IdleTimeout, cancel)
	defer w.Stop()
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()
	end := time.Now()
	result.EndedAt = end
	result.Duration = end.Sub(start)

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		result.Status = StatusSuccess
		writeTrailer(f, fmt.Sprintf("[SUCCESS] %s", end.Format(bannerLayout)))

	case errors.As(runErr, &exitErr):
		result.Status = StatusChildError
		result.ChildCode = exitErr.ExitCode()
		note := ""
		if w.Idled() {
			note = " (killed: no output for " + j.IdleTimeout.String() + ")"
		} else if ctx.Err() == context.DeadlineExceeded {
			note = " (killed: max runtime exceeded)"
		}
		writeTrailer(f, fmt.Sprintf("[ERROR] %s exit code %d%s", end.Format(bannerLayout), result.ChildCode, note))

	default:
		// Interpreter not found or not executable.
		result.Status = StatusSetupError
		result.Reason = fmt.Sprintf("spawn %s: %v", j.Command[0], runErr)
		writeTrailer(f, fmt.Sprintf("[ERROR] %s %s", end.Format(bannerLayout), result.Reason))
	}

	result.LastMsg = lastLine(result.LogPath)
	return result
}

func setupFailed(r *Result, reason string) *Result {
	r.Status = StatusSetupError
	r.Reason = reason
	r.EndedAt = time.Now()
	r.Duration = r.EndedAt.Sub(r.StartedAt)
	return r
}

func writeBanner(f *os.File, j Job, start time.Time) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintln(f, sep)
	fmt.Fprintf(f, "stockrun: %s started at %s\n", j.Name, start.Format(bannerLayout))
	fmt.Fprintf(f, "workdir: %s\n", j.WorkDir)
	fmt.Fprintf(f, "command: %s\n", strings.Join(j.Command, " "))
	fmt.Fprintln(f, sep)
}

func writeTrailer(f *os.File, line string) {
	fmt.Fprintln(f, line)
}

// childEnv builds the child's environment: the parent environment with
// UTF-8 text I/O defaults applied, then per-job overrides on top. The
// parent process environment is never mutated.
func childEnv(overrides map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	merged["PYTHONIOENCODING"] = "utf-8"
	merged["PYTHONUTF8"] = "1"
	for k, v := range overrides {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// lastLine reads the last non-empty line from a file.
func lastLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			last = line
		}
	}
	return last
}
