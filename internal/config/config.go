package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/rss"
	"github.com/deusflow/devops-digest/internal/summarize"
)

type Config struct {
	// AI settings
	AIProvider    string // openai | gemini | anthropic
	AIAPIKey      string // key of the selected provider
	AIModel       string // empty = provider default
	AIBaseURL     string
	MaxAIRequests int // maximum generation requests per run (0 = unlimited)

	// Telegram settings (both empty = delivery disabled)
	TelegramToken  string
	TelegramChatID string
	SendDelay      time.Duration

	// RSS settings
	FeedsConfigPath string
	CollectPolicy   rss.Policy
	EntriesPerFeed  int
	SummaryMaxRunes int
	Location        *time.Location

	// Digest settings
	DigestMode      summarize.Mode
	DigestLanguage  string
	EnrichArticles  bool
	ArticleMaxRunes int

	// Timeouts
	FeedTimeout     time.Duration
	AITimeout       time.Duration
	TelegramTimeout time.Duration
	ScrapeTimeout   time.Duration
}

var providerKeyEnv = map[string]string{
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		AIProvider:      llm.ProviderOpenAI,
		SendDelay:       time.Second,
		FeedsConfigPath: "configs/feeds.yaml",
		CollectPolicy:   rss.PolicyYesterday,
		EntriesPerFeed:  5,
		SummaryMaxRunes: 500,
		Location:        time.Local,
		DigestMode:      summarize.ModeBatch,
		DigestLanguage:  "Ukrainian",
		ArticleMaxRunes: 2000,
		FeedTimeout:     20 * time.Second,
		AITimeout:       60 * time.Second,
		TelegramTimeout: 30 * time.Second,
		ScrapeTimeout:   15 * time.Second,
	}

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = strings.ToLower(strings.TrimSpace(v))
	}
	if env, ok := providerKeyEnv[cfg.AIProvider]; ok {
		cfg.AIAPIKey = os.Getenv(env)
	}
	cfg.AIModel = os.Getenv("AI_MODEL")
	cfg.AIBaseURL = os.Getenv("AI_BASE_URL")

	cfg.TelegramToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", os.Getenv("TELEGRAM_TOKEN"))
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	if v := os.Getenv("COLLECT_POLICY"); v != "" {
		cfg.CollectPolicy = rss.Policy(strings.ToLower(v))
	}
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if v := os.Getenv("DIGEST_MODE"); v != "" {
		cfg.DigestMode = summarize.Mode(strings.ToLower(v))
	}
	cfg.DigestLanguage = getEnvOrDefault("DIGEST_LANGUAGE", cfg.DigestLanguage)
	cfg.EnrichArticles = os.Getenv("ENRICH_ARTICLES") == "true"

	var err error
	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_AI_REQUESTS", &cfg.MaxAIRequests},
		{"ENTRIES_PER_FEED", &cfg.EntriesPerFeed},
		{"SUMMARY_MAX_RUNES", &cfg.SummaryMaxRunes},
		{"ARTICLE_MAX_RUNES", &cfg.ArticleMaxRunes},
	}
	for _, i := range ints {
		if *i.dst, err = getEnvIntOrDefault(i.key, *i.dst); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SEND_DELAY", &cfg.SendDelay},
		{"FEED_TIMEOUT", &cfg.FeedTimeout},
		{"AI_TIMEOUT", &cfg.AITimeout},
		{"TELEGRAM_TIMEOUT", &cfg.TelegramTimeout},
		{"SCRAPE_TIMEOUT", &cfg.ScrapeTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDurationOrDefault(d.key, *d.dst); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return intValue, nil
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (c *Config) Validate() error {
	env, ok := providerKeyEnv[c.AIProvider]
	if !ok {
		return fmt.Errorf("AI_PROVIDER must be 'openai', 'gemini' or 'anthropic'")
	}
	if c.AIAPIKey == "" {
		return fmt.Errorf("%s is required", env)
	}
	if c.CollectPolicy != rss.PolicyYesterday && c.CollectPolicy != rss.PolicyLatest {
		return fmt.Errorf("COLLECT_POLICY must be 'yesterday' or 'latest'")
	}
	if c.CollectPolicy == rss.PolicyLatest && c.EntriesPerFeed <= 0 {
		return fmt.Errorf("ENTRIES_PER_FEED must be positive")
	}
	if c.SummaryMaxRunes < 100 || c.SummaryMaxRunes > 1000 {
		return fmt.Errorf("SUMMARY_MAX_RUNES must be between 100 and 1000")
	}
	if c.DigestMode != summarize.ModeBatch && c.DigestMode != summarize.ModePerItem {
		return fmt.Errorf("DIGEST_MODE must be 'batch' or 'per-item'")
	}
	for name, d := range map[string]time.Duration{
		"FEED_TIMEOUT":     c.FeedTimeout,
		"AI_TIMEOUT":       c.AITimeout,
		"TELEGRAM_TIMEOUT": c.TelegramTimeout,
		"SCRAPE_TIMEOUT":   c.ScrapeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.MaxAIRequests < 0 {
		return fmt.Errorf("MAX_AI_REQUESTS must not be negative")
	}
	if c.EnrichArticles && c.ArticleMaxRunes <= 0 {
		return fmt.Errorf("ARTICLE_MAX_RUNES must be positive")
	}
	if c.SendDelay < 0 {
		return fmt.Errorf("SEND_DELAY must not be negative")
	}
	return nil
}
