package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.telegram.org"

	// MaxMessageRunes leaves room under Telegram's 4096 limit for TruncationSuffix.
	MaxMessageRunes  = 4000
	TruncationSuffix = "\n...(truncated: Telegram message limit)"
)

// Client posts messages to one chat. With an empty token or chat id it is
// disabled and Publish does nothing.
type Client struct {
	Token     string
	ChatID    string
	BaseURL   string
	SendDelay time.Duration
	HTTP      *http.Client
	Metrics   *metrics.Metrics
}

func New(token, chatID string, timeout, sendDelay time.Duration) *Client {
	return &Client{
		Token:     token,
		ChatID:    chatID,
		BaseURL:   DefaultBaseURL,
		SendDelay: sendDelay,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether delivery credentials are present.
func (c *Client) Enabled() bool {
	return c.Token != "" && c.ChatID != ""
}

// Publish sends texts in order, pausing SendDelay between them. Errors are
// logged and never returned; the number of delivered messages is.
func (c *Client) Publish(ctx context.Context, texts ...string) int {
	if !c.Enabled() {
		logger.Info("telegram credentials not set, skipping delivery", "messages", len(texts))
		return 0
	}

	sent := 0
	for i, text := range texts {
		if i > 0 && c.SendDelay > 0 {
			select {
			case <-ctx.Done():
				logger.Warn("delivery interrupted", "sent", sent, "total", len(texts))
				return sent
			case <-time.After(c.SendDelay):
			}
		}

		if err := c.sendMessageOnce(ctx, text); err != nil {
			logger.Error("telegram send failed", "n", i+1, "error", err)
			c.Metrics.IncrementMessagesFailed()
			continue
		}
		sent++
		c.Metrics.IncrementMessagesSent()
		logger.Info("message sent to Telegram", "n", i+1, "of", len(texts))
	}
	return sent
}

var htmlTagRe = regexp.MustCompile(`<(/?)([A-Za-z]+)[^>]*>`)

// Truncate caps text at MaxMessageRunes and marks the cut. A cut inside a tag
// or an entity backs up before it, and tags left open are closed, so the
// result still parses in HTML mode.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageRunes {
		return text
	}
	cut := string([]rune(text)[:MaxMessageRunes])

	if lt := strings.LastIndex(cut, "<"); lt > strings.LastIndex(cut, ">") {
		cut = cut[:lt]
	}
	if amp := strings.LastIndex(cut, "&"); amp > strings.LastIndex(cut, ";") && !strings.ContainsAny(cut[amp:], " \n\t") {
		cut = cut[:amp]
	}

	return cut + closeOpenTags(cut) + TruncationSuffix
}

// closeOpenTags returns the closing tags for elements left open in s,
// innermost first.
func closeOpenTags(s string) string {
	var open []string
	for _, m := range htmlTagRe.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[2])
		if m[1] == "" {
			open = append(open, name)
			continue
		}
		for i := len(open) - 1; i >= 0; i-- {
			if open[i] == name {
				open = append(open[:i], open[i+1:]...)
				break
			}
		}
	}

	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

func (c *Client) sendMessageOnce(ctx context.Context, text string) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), c.Token)

	payload := map[string]interface{}{
		"chat_id":                  c.ChatID,
		"text":                     Truncate(text),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true, // No link preview for clean
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		return fmt.Errorf("error HTTP request: %s", redact(err.Error(), c.Token))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<token>")
}
