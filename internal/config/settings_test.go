package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettings_Valid(t *testing.T) {
	content := `
task: daily_report
workdir: /srv/reports
interpreter: python3
script: stock_report.py
schedule: "15 22 * * *"
max_runtime: 45m
idle_timeout: 5m
env:
  REPORT_MODE: premium
notify:
  mode: slack
  on: failure
  slack:
    webhook_url: https://hooks.slack.example/T123
`
	path := writeTemp(t, content)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.Task != "daily_report" {
		t.Errorf("task: got %q, want daily_report", s.Task)
	}
	if s.Interpreter != "python3" {
		t.Errorf("interpreter: got %q, want python3", s.Interpreter)
	}
	if s.Schedule != "15 22 * * *" {
		t.Errorf("schedule: got %q", s.Schedule)
	}
	if s.MaxRuntime != 45*time.Minute {
		t.Errorf("max_runtime: got %v, want 45m", s.MaxRuntime)
	}
	if s.Env["REPORT_MODE"] != "premium" {
		t.Errorf("env: got %v", s.Env)
	}
	if s.Notify.Mode != "slack" || s.Notify.On != "failure" {
		t.Errorf("notify: got %+v", s.Notify)
	}
	if s.Notify.Slack.WebhookURL != "https://hooks.slack.example/T123" {
		t.Errorf("webhook: got %q", s.Notify.Slack.WebhookURL)
	}
}

func TestLoadSettings_MissingFileDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if s.Task != "stock_report" {
		t.Errorf("task default: got %q", s.Task)
	}
	if s.Interpreter != "python" {
		t.Errorf("interpreter default: got %q", s.Interpreter)
	}
	if s.Script != "stock_report.py" {
		t.Errorf("script default: got %q", s.Script)
	}
	if s.Notify.Mode != "off" {
		t.Errorf("notify mode default: got %q", s.Notify.Mode)
	}
}

func TestLoadSettings_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "task: [invalid\n")
	_, err := LoadSettings(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSettings_Resolve(t *testing.T) {
	s := &Settings{WorkDir: "/srv/reports", LogsDir: "logs", HistoryDB: "state/history.db"}
	s.applyDefaults()
	if err := s.Resolve(); err != nil {
		t.Fatal(err)
	}

	if s.LogsDir != filepath.Join("/srv/reports", "logs") {
		t.Errorf("logs dir: got %q", s.LogsDir)
	}
	if s.HistoryDB != filepath.Join("/srv/reports", "state", "history.db") {
		t.Errorf("history db: got %q", s.HistoryDB)
	}
}

func TestSettings_ResolveRelativeWorkdir(t *testing.T) {
	s := &Settings{}
	s.applyDefaults()
	if err := s.Resolve(); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(s.WorkDir) {
		t.Errorf("workdir should be absolute, got %q", s.WorkDir)
	}
	if !filepath.IsAbs(s.LogsDir) {
		t.Errorf("logs dir should be absolute, got %q", s.LogsDir)
	}
}

func TestSettings_Command(t *testing.T) {
	s := &Settings{Interpreter: "python", Script: "stock_report.py", Args: []string{"--mode", "fast"}}
	got := s.Command()
	want := []string{"python", "stock_report.py", "--mode", "fast"}
	if len(got) != len(want) {
		t.Fatalf("argv: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("argv[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("STOCKRUN_TEST_TOKEN", "tok-123")

	got, err := ResolveSecret("env:STOCKRUN_TEST_TOKEN")
	if err != nil {
		t.Fatal(err)
	}
	if got != "tok-123" {
		t.Errorf("got %q, want tok-123", got)
	}

	lit, err := ResolveSecret("literal-value")
	if err != nil {
		t.Fatal(err)
	}
	if lit != "literal-value" {
		t.Errorf("literal should pass through, got %q", lit)
	}

	if _, err := ResolveSecret("env:STOCKRUN_UNSET_VAR_XYZ"); err == nil {
		t.Error("expected error for unset env var")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
