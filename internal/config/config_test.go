package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deusflow/devops-digest/internal/rss"
	"github.com/deusflow/devops-digest/internal/summarize"
)

var allKeys = []string{
	"AI_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY", "AI_MODEL", "AI_BASE_URL",
	"MAX_AI_REQUESTS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "FEEDS_CONFIG_PATH",
	"COLLECT_POLICY", "ENTRIES_PER_FEED", "SUMMARY_MAX_RUNES", "TIMEZONE", "DIGEST_MODE",
	"DIGEST_LANGUAGE", "ENRICH_ARTICLES", "ARTICLE_MAX_RUNES", "SEND_DELAY", "FEED_TIMEOUT",
	"AI_TIMEOUT", "TELEGRAM_TIMEOUT", "SCRAPE_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "openai", cfg.AIProvider)
	require.Equal(t, "sk-test", cfg.AIAPIKey)
	require.Equal(t, rss.PolicyYesterday, cfg.CollectPolicy)
	require.Equal(t, summarize.ModeBatch, cfg.DigestMode)
	require.Equal(t, 500, cfg.SummaryMaxRunes)
	require.Equal(t, time.Second, cfg.SendDelay)
	require.Equal(t, 60*time.Second, cfg.AITimeout)
	require.Equal(t, "configs/feeds.yaml", cfg.FeedsConfigPath)
	require.Empty(t, cfg.TelegramToken)
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("TELEGRAM_CHAT_ID", "c")

	_, err := Load()
	require.ErrorContains(t, err, "OPENAI_API_KEY is required")
}

func TestLoadProviderKeySelection(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("OPENAI_API_KEY", "sk-wrong")

	_, err := Load()
	require.ErrorContains(t, err, "GEMINI_API_KEY is required")

	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.AIProvider)
	require.Equal(t, "g-key", cfg.AIAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("TELEGRAM_TOKEN", "legacy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("COLLECT_POLICY", "latest")
	t.Setenv("ENTRIES_PER_FEED", "2")
	t.Setenv("SUMMARY_MAX_RUNES", "1000")
	t.Setenv("DIGEST_MODE", "per-item")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SEND_DELAY", "250ms")
	t.Setenv("ENRICH_ARTICLES", "true")
	t.Setenv("MAX_AI_REQUESTS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "legacy-token", cfg.TelegramToken)
	require.Equal(t, "-100", cfg.TelegramChatID)
	require.Equal(t, rss.PolicyLatest, cfg.CollectPolicy)
	require.Equal(t, 2, cfg.EntriesPerFeed)
	require.Equal(t, 1000, cfg.SummaryMaxRunes)
	require.Equal(t, summarize.ModePerItem, cfg.DigestMode)
	require.Equal(t, time.UTC, cfg.Location)
	require.Equal(t, 250*time.Millisecond, cfg.SendDelay)
	require.True(t, cfg.EnrichArticles)
	require.Equal(t, 4, cfg.MaxAIRequests)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"AI_PROVIDER", "llama", "AI_PROVIDER"},
		{"COLLECT_POLICY", "weekly", "COLLECT_POLICY"},
		{"DIGEST_MODE", "thread", "DIGEST_MODE"},
		{"SUMMARY_MAX_RUNES", "5000", "SUMMARY_MAX_RUNES"},
		{"AI_TIMEOUT", "soon", "AI_TIMEOUT"},
		{"FEED_TIMEOUT", "0s", "FEED_TIMEOUT"},
		{"TIMEZONE", "Mars/Olympus", "TIMEZONE"},
		{"SUMMARY_MAX_RUNES", "5OO", "SUMMARY_MAX_RUNES"},
		{"ENTRIES_PER_FEED", "five", "ENTRIES_PER_FEED"},
		{"MAX_AI_REQUESTS", "-1", "MAX_AI_REQUESTS"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.ErrorContains(t, err, tt.want)
		})
	}
}
