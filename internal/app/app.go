package app

import (
	"context"
	"fmt"

	"github.com/deusflow/devops-digest/internal/config"
	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/metrics"
	"github.com/deusflow/devops-digest/internal/news"
	"github.com/deusflow/devops-digest/internal/ratelimit"
	"github.com/deusflow/devops-digest/internal/rss"
	"github.com/deusflow/devops-digest/internal/scraper"
	"github.com/deusflow/devops-digest/internal/selector"
	"github.com/deusflow/devops-digest/internal/summarize"
	"github.com/deusflow/devops-digest/internal/telegram"
)

type Collector interface {
	Collect(ctx context.Context, urls []string) []news.Item
}

type Selector interface {
	Select(ctx context.Context, items []news.Item) []news.Item
}

type Publisher interface {
	Publish(ctx context.Context, texts ...string) int
}

// Pipeline runs one digest: collect, select, compose, publish.
type Pipeline struct {
	Feeds     []string
	Collector Collector
	Selector  Selector
	Composer  summarize.Composer
	Publisher Publisher
	Metrics   *metrics.Metrics
	Budget    *ratelimit.Budget // optional, reported at the end of a run

	closer func() error
}

// New builds the production pipeline from cfg.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	feeds, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}

	client, err := llm.New(ctx, llm.Options{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
		BaseURL:  cfg.AIBaseURL,
		Timeout:  cfg.AITimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init AI client: %w", err)
	}

	m := metrics.New()
	gen := ratelimit.NewBudget(client, cfg.MaxAIRequests, m)

	collector := rss.NewCollector(cfg.CollectPolicy, cfg.EntriesPerFeed, cfg.SummaryMaxRunes, cfg.Location, cfg.FeedTimeout)
	collector.Metrics = m

	opts := summarize.Options{
		Language: cfg.DigestLanguage,
		Location: cfg.Location,
	}
	if cfg.EnrichArticles {
		opts.Articles = scraper.New(cfg.ScrapeTimeout, cfg.ArticleMaxRunes)
	}
	composer, err := summarize.New(cfg.DigestMode, gen, opts)
	if err != nil {
		client.Close()
		return nil, err
	}

	publisher := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramTimeout, cfg.SendDelay)
	publisher.Metrics = m

	logger.Info("pipeline configured",
		"feeds", len(feeds),
		"provider", cfg.AIProvider,
		"policy", string(cfg.CollectPolicy),
		"mode", string(cfg.DigestMode),
		"telegram", publisher.Enabled(),
		"enrich", cfg.EnrichArticles,
	)

	return &Pipeline{
		Feeds:     feeds,
		Collector: collector,
		Selector:  selector.New(gen),
		Composer:  composer,
		Publisher: publisher,
		Metrics:   m,
		Budget:    gen,
		closer:    client.Close,
	}, nil
}

// Close releases the AI client.
func (p *Pipeline) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Run executes the pipeline once. Per-stage failures are handled inside the
// stages; Run only fails when the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	defer func() {
		p.Metrics.Finish()
		p.Metrics.Log()
		if p.Budget != nil {
			logger.Info("AI requests used", "used", p.Budget.Used(), "limit", p.Budget.Limit())
		}
	}()

	items := p.Collector.Collect(ctx, p.Feeds)
	if len(items) == 0 {
		logger.Info("no news to publish")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	selected := p.Selector.Select(ctx, items)
	p.Metrics.SetItemsSelected(len(selected))
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("select: %w", err)
	}

	messages := p.Composer.Compose(ctx, selected)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	sent := p.Publisher.Publish(ctx, messages...)
	logger.Info("digest done", "selected", len(selected), "messages", len(messages), "sent", sent)
	return nil
}
