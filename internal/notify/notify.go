// Package notify delivers run results to configured channels. Each
// channel is a strategy behind the Notifier interface; composite mode
// fans out to several at once.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jkkim74/stockrun/internal/config"
	"github.com/jkkim74/stockrun/internal/runner"
)

// Message is the channel-independent run summary.
type Message struct {
	Task      string
	Status    runner.Status
	ExitCode  int
	StartedAt time.Time
	Duration  time.Duration
	LogPath   string
	LastMsg   string
}

// FromResult builds a Message from a runner result.
func FromResult(res *runner.Result) Message {
	return Message{
		Task:      res.Task,
		Status:    res.Status,
		ExitCode:  res.ExitCode(),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		LogPath:   res.LogPath,
		LastMsg:   res.LastMsg,
	}
}

// Text renders the summary as plain text.
func (m Message) Text() string {
	var b strings.Builder
	if m.Status == runner.StatusSuccess {
		fmt.Fprintf(&b, "✅ %s succeeded\n", m.Task)
	} else {
		fmt.Fprintf(&b, "❌ %s failed (exit code %d)\n", m.Task, m.ExitCode)
	}
	fmt.Fprintf(&b, "started: %s\n", m.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "duration: %s\n", m.Duration.Truncate(time.Second))
	if m.LogPath != "" {
		fmt.Fprintf(&b, "log: %s\n", m.LogPath)
	}
	if m.Status != runner.StatusSuccess && m.LastMsg != "" {
		fmt.Fprintf(&b, "last output: %s\n", m.LastMsg)
	}
	return b.String()
}

// Notifier delivers one message to a channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// New builds the notifier selected by cfg.Mode, resolving any env:
// secret references. Mode "off" returns nil.
func New(cfg config.NotifyConfig, workDir string) (Notifier, error) {
	return newMode(cfg, workDir, cfg.Mode)
}

func newMode(cfg config.NotifyConfig, workDir, mode string) (Notifier, error) {
	switch mode {
	case "", "off":
		return nil, nil

	case "slack":
		url, err := config.ResolveSecret(cfg.Slack.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("slack webhook: %w", err)
		}
		if url == "" {
			return nil, fmt.Errorf("slack webhook_url is not configured")
		}
		return NewSlackNotifier(url), nil

	case "telegram":
		token, err := config.ResolveSecret(cfg.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram bot token: %w", err)
		}
		if token == "" || cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram bot_token and chat_id are required")
		}
		return NewTelegramNotifier(token, cfg.Telegram.ChatID), nil

	case "file":
		dir := cfg.File.Dir
		if dir == "" {
			dir = workDir
		}
		return NewFileNotifier(dir), nil

	case "composite":
		if len(cfg.Composite) == 0 {
			return nil, fmt.Errorf("composite mode needs at least one channel")
		}
		var children []Notifier
		for _, m := range cfg.Composite {
			if m == "composite" {
				return nil, fmt.Errorf("composite cannot nest composite")
			}
			n, err := newMode(cfg, workDir, m)
			if err != nil {
				return nil, err
			}
			if n != nil {
				children = append(children, n)
			}
		}
		return NewCompositeNotifier(children), nil

	default:
		return nil, fmt.Errorf("unknown notify mode %q", mode)
	}
}

// Wanted reports whether a result with the given failure state should
// be delivered under the "on" policy (always | failure | off).
func Wanted(on string, failed bool) bool {
	switch on {
	case "always", "":
		return true
	case "failure":
		return failed
	default:
		return false
	}
}
