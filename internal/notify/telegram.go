package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// telegramMessageLimit is the Bot API cap on message length.
const telegramMessageLimit = 4096

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string // overridable for tests
	client  *http.Client
}

// NewTelegramNotifier creates a Telegram bot notifier.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel identifier.
func (n *TelegramNotifier) Name() string { return "telegram" }

// Send delivers the message, split into chunks under the API limit.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	for _, chunk := range chunkText(msg.Text(), telegramMessageLimit) {
		if err := n.sendMessage(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// chunkText splits s into rune-safe pieces of at most limit runes.
func chunkText(s string, limit int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
