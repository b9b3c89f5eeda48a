// Package llm hides the text-generation providers behind one small interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request is a single role-tagged prompt.
type Request struct {
	System      string
	Prompt      string
	Temperature *float32 // nil leaves the provider default
}

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client is a Generator owning network resources.
type Client interface {
	Generator
	Close() error
}

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

var ErrEmptyResponse = errors.New("empty response from model")

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // tests and proxies
	Timeout  time.Duration
}

// New builds the client for opts.Provider.
func New(ctx context.Context, opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is empty", opts.Provider)
	}
	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, opts)
	case ProviderAnthropic:
		return NewAnthropicClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", opts.Provider)
	}
}

// Float32 is a helper for Request.Temperature.
func Float32(v float32) *float32 { return &v }

// StripCodeFence removes markdown fences models like to wrap answers in.
func StripCodeFence(content string) string {
	for _, marker := range []string{"```json", "```html", "```"} {
		content = strings.ReplaceAll(content, marker, "")
	}
	return strings.TrimSpace(content)
}

// ExtractJSONArray returns the outermost [...] of a reply, fences removed.
func ExtractJSONArray(content string) string {
	content = StripCodeFence(content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
