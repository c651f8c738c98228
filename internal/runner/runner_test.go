package runner

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"sh", "-c", "echo Report generated"},
	})

	if res.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (reason: %s)", res.Status, res.Reason)
	}
	if res.ExitCode() != 0 {
		t.Errorf("exit code: got %d, want 0", res.ExitCode())
	}

	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "report started at") {
		t.Errorf("expected start banner in log, got:\n%s", log)
	}
	if !strings.Contains(log, "Report generated") {
		t.Errorf("expected child output in log, got:\n%s", log)
	}
	if !strings.Contains(res.LastMsg, "[SUCCESS]") {
		t.Errorf("expected [SUCCESS] trailer as last line, got %q", res.LastMsg)
	}
}

func TestRun_ChildExitCode(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"sh", "-c", "echo failing; exit 3"},
	})

	if res.Status != StatusChildError {
		t.Fatalf("expected CHILD_ERROR, got %s", res.Status)
	}
	if res.ChildCode != 3 {
		t.Errorf("child code: got %d, want 3", res.ChildCode)
	}
	if res.ExitCode() != 3 {
		t.Errorf("exit code: got %d, want 3", res.ExitCode())
	}
	if !strings.Contains(res.LastMsg, "[ERROR]") || !strings.Contains(res.LastMsg, "exit code 3") {
		t.Errorf("expected [ERROR] trailer with code, got %q", res.LastMsg)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"definitely-not-a-real-binary-xyz"},
	})

	if res.Status != StatusSetupError {
		t.Fatalf("expected SETUP_ERROR, got %s", res.Status)
	}
	if res.ExitCode() != 1 {
		t.Errorf("exit code: got %d, want 1", res.ExitCode())
	}
	// log file still exists and records the failure
	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "spawn") {
		t.Errorf("expected spawn failure in log, got:\n%s", data)
	}
}

func TestRun_LogNameTimestamped(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "stock_report",
		WorkDir: dir,
		Command: []string{"true"},
	})

	base := filepath.Base(res.LogPath)
	matched, err := regexp.MatchString(`^stock_report_\d{8}_\d{6}\.log$`, base)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Errorf("log name %q does not match <task>_<YYYYMMDD_HHMMSS>.log", base)
	}
	if filepath.Dir(res.LogPath) != filepath.Join(dir, "logs") {
		t.Errorf("log not under <workdir>/logs: %s", res.LogPath)
	}
}

func TestRun_StderrCaptured(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"sh", "-c", "echo out; echo err >&2"},
	})

	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "out") {
		t.Errorf("stdout missing from log:\n%s", log)
	}
	if !strings.Contains(log, "err") {
		t.Errorf("stderr missing from log:\n%s", log)
	}
}

func TestRun_StdoutOrderPreserved(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"sh", "-c", "echo first; echo second; echo third"},
	})

	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	first := strings.Index(log, "first")
	second := strings.Index(log, "second")
	third := strings.Index(log, "third")
	if !(first >= 0 && first < second && second < third) {
		t.Errorf("stdout order not preserved:\n%s", log)
	}
}

func TestRun_WorkingDir(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"pwd"},
	})

	if res.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", res.Status)
	}
	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), dir) {
		t.Errorf("expected working dir %q in output, got:\n%s", dir, data)
	}
}

func TestRun_EnvOverrides(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:    "report",
		WorkDir: dir,
		Command: []string{"sh", "-c", "echo enc=$PYTHONIOENCODING extra=$REPORT_MODE"},
		Env:     map[string]string{"REPORT_MODE": "premium"},
	})

	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	if !strings.Contains(log, "enc=utf-8") {
		t.Errorf("expected UTF-8 encoding override in child env:\n%s", log)
	}
	if !strings.Contains(log, "extra=premium") {
		t.Errorf("expected job env override in child env:\n%s", log)
	}
}

func TestRun_MaxRuntime(t *testing.T) {
	dir := t.TempDir()

	start := time.Now()
	res := Run(context.Background(), Job{
		Name:       "report",
		WorkDir:    dir,
		Command:    []string{"sleep", "10"},
		MaxRuntime: 100 * time.Millisecond,
	})

	if time.Since(start) > 5*time.Second {
		t.Fatal("max runtime did not kill the child")
	}
	if !res.Failed() {
		t.Fatalf("expected failure after timeout, got %s", res.Status)
	}
}

func TestRun_IdleTimeout(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{
		Name:        "report",
		WorkDir:     dir,
		Command:     []string{"sh", "-c", "echo once; sleep 10"},
		IdleTimeout: 150 * time.Millisecond,
	})

	if !res.Failed() {
		t.Fatalf("expected failure after idle kill, got %s", res.Status)
	}
	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "once") {
		t.Errorf("expected pre-idle output in log:\n%s", data)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	dir := t.TempDir()

	res := Run(context.Background(), Job{Name: "report", WorkDir: dir})

	if res.Status != StatusSetupError {
		t.Fatalf("expected SETUP_ERROR, got %s", res.Status)
	}
	if res.ExitCode() != 1 {
		t.Errorf("exit code: got %d, want 1", res.ExitCode())
	}
}

func TestChildEnv_OverridesWin(t *testing.T) {
	env := childEnv(map[string]string{"PYTHONUTF8": "0"})

	var got string
	for _, kv := range env {
		if strings.HasPrefix(kv, "PYTHONUTF8=") {
			got = kv
		}
	}
	if got != "PYTHONUTF8=0" {
		t.Errorf("job env should override defaults, got %q", got)
	}
}

func TestResult_ExitCode(t *testing.T) {
	cases := []struct {
		name string
		res  Result
		want int
	}{
		{"success", Result{Status: StatusSuccess}, 0},
		{"child error", Result{Status: StatusChildError, ChildCode: 7}, 7},
		{"child killed", Result{Status: StatusChildError, ChildCode: 0}, 1},
		{"setup error", Result{Status: StatusSetupError}, 1},
	}

	for _, tc := range cases {
		if got := tc.res.ExitCode(); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}
