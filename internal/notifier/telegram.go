package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"SignalDesk/internal/model"
)

const (
	telegramAPI = "https://api.telegram.org"
	// telegramMaxLen is the Bot API limit for one message text.
	telegramMaxLen = 4096
)

// Notifier delivers a finished report somewhere.
type Notifier interface {
	Notify(ctx context.Context, rep *model.Report) error
	Name() string
}

// TelegramNotifier sends messages via the Telegram Bot API.
// RetryInterval is the first backoff delay; later delays grow exponentially.
type TelegramNotifier struct {
	BotToken      string
	ChatID        string
	BaseURL       string
	Client        *http.Client
	MaxRetries    uint64
	RetryInterval time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken:      botToken,
		ChatID:        chatID,
		BaseURL:       telegramAPI,
		MaxRetries:    3,
		RetryInterval: time.Second,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify sends the report summary, split into as many messages as the API limit requires.
func (t *TelegramNotifier) Notify(ctx context.Context, rep *model.Report) error {
	for _, part := range splitMessage(FormatTelegramSummary(rep), telegramMaxLen) {
		if err := t.SendWithRetry(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
		// a rejected message will be rejected again
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string) error {
	bo := backoff.NewExponentialBackOff()
	if t.RetryInterval > 0 {
		bo.InitialInterval = t.RetryInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, t.MaxRetries), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return t.Send(ctx, text)
	}, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("telegram send failed")
	})
	if err != nil {
		return fmt.Errorf("telegram send after %d attempts: %w", attempt, err)
	}
	return nil
}

func (t *TelegramNotifier) endpoint(method string) string {
	base := t.BaseURL
	if base == "" {
		base = telegramAPI
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), t.BotToken, method)
}

// splitMessage cuts text on line boundaries into chunks of at most limit bytes.
// A single line longer than limit is cut hard.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			parts = append(parts, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
