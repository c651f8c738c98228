// Package config loads stockrun settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = ".stockrun.yml"

// Settings holds persistent CLI defaults loaded from a config file.
type Settings struct {
	Task        string            `yaml:"task"`         // task name, prefixes log files
	WorkDir     string            `yaml:"workdir"`      // where the script runs
	Interpreter string            `yaml:"interpreter"`  // e.g. "python"
	Script      string            `yaml:"script"`       // script path relative to workdir
	Args        []string          `yaml:"args"`         // extra script arguments
	LogsDir     string            `yaml:"logs_dir"`     // relative to workdir unless absolute
	HistoryDB   string            `yaml:"history_db"`   // sqlite run history path
	Schedule    string            `yaml:"schedule"`     // cron expression for the daemon
	MaxRuntime  time.Duration     `yaml:"max_runtime"`  // per-run timeout
	IdleTimeout time.Duration     `yaml:"idle_timeout"` // kill after silence
	Env         map[string]string `yaml:"env"`          // extra child environment

	Notify NotifyConfig `yaml:"notify"`
}

// NotifyConfig selects delivery channels for run results.
type NotifyConfig struct {
	Mode      string   `yaml:"mode"`      // slack | telegram | file | composite | off
	On        string   `yaml:"on"`        // always | failure | off
	Composite []string `yaml:"composite"` // channels for composite mode

	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
	File     FileConfig     `yaml:"file"`
}

// SlackConfig holds incoming-webhook delivery settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"` // literal or "env:VAR_NAME"
}

// TelegramConfig holds bot delivery settings.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"` // literal or "env:VAR_NAME"
	ChatID   string `yaml:"chat_id"`
}

// FileConfig holds local-file delivery settings.
type FileConfig struct {
	Dir string `yaml:"dir"` // defaults to <workdir>/notifications
}

// LoadSettings reads a YAML config file into Settings with defaults
// applied. If the file does not exist, it returns default Settings and
// nil error.
func LoadSettings(path string) (*Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.applyDefaults()
			return &s, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.Task == "" {
		s.Task = "stock_report"
	}
	if s.WorkDir == "" {
		s.WorkDir = "."
	}
	if s.Interpreter == "" {
		s.Interpreter = "python"
	}
	if s.Script == "" {
		s.Script = "stock_report.py"
	}
	if s.Notify.Mode == "" {
		s.Notify.Mode = "off"
	}
	if s.Notify.On == "" {
		s.Notify.On = "always"
	}
}

// Resolve makes WorkDir absolute and anchors relative paths under it.
func (s *Settings) Resolve() error {
	abs, err := filepath.Abs(s.WorkDir)
	if err != nil {
		return fmt.Errorf("resolve workdir: %w", err)
	}
	s.WorkDir = abs

	if s.LogsDir == "" {
		s.LogsDir = filepath.Join(s.WorkDir, "logs")
	} else if !filepath.IsAbs(s.LogsDir) {
		s.LogsDir = filepath.Join(s.WorkDir, s.LogsDir)
	}

	if s.HistoryDB == "" {
		s.HistoryDB = filepath.Join(s.WorkDir, ".stockrun", "history.db")
	} else if !filepath.IsAbs(s.HistoryDB) {
		s.HistoryDB = filepath.Join(s.WorkDir, s.HistoryDB)
	}

	return nil
}

// Command returns the child argv: interpreter, script, then extra args.
func (s *Settings) Command() []string {
	argv := []string{s.Interpreter, s.Script}
	return append(argv, s.Args...)
}

// ResolveSecret expands "env:VAR_NAME" references; literals pass through.
func ResolveSecret(v string) (string, error) {
	if !strings.HasPrefix(v, "env:") {
		return v, nil
	}
	key := strings.TrimPrefix(v, "env:")
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("env var %q is not set", key)
	}
	return val, nil
}
