package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/metrics"
	"github.com/deusflow/devops-digest/internal/news"
)

// DefaultFeeds is used when no feeds file is present.
var DefaultFeeds = []string{
	"https://thenewstack.io/feed/",
	"https://devops.com/feed/",
	"https://aws.amazon.com/about-aws/whats-new/recent/feed/",
	"https://kubernetes.io/feed.xml",
	"https://www.cncf.io/feed/",
	"https://www.hashicorp.com/blog/feed.xml",
	"https://infoq.com/feed/devops",
	"https://cloud.google.com/feeds/blog-rss.xml",
	"https://github.blog/category/engineering/feed/",
	"https://netflixtechblog.com/feed",
}

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file. A missing file yields DefaultFeeds.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("feeds file not found, using built-in list", "path", path, "feeds", len(DefaultFeeds))
		return append([]string(nil), DefaultFeeds...), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	feeds := make([]string, 0, len(cfg.Feeds))
	for _, u := range cfg.Feeds {
		if u = strings.TrimSpace(u); u != "" {
			feeds = append(feeds, u)
		}
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%s: no feeds listed", path)
	}
	return feeds, nil
}

// Policy decides which entries of a feed are kept.
type Policy string

const (
	// PolicyYesterday keeps entries published on the previous calendar day.
	PolicyYesterday Policy = "yesterday"
	// PolicyLatest keeps the first N entries of every feed.
	PolicyLatest Policy = "latest"
)

// FeedParser is satisfied by *gofeed.Parser.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// Collector fetches feeds one by one and normalizes their entries.
type Collector struct {
	Parser         FeedParser
	Policy         Policy
	EntriesPerFeed int
	SummaryMax     int
	Location       *time.Location
	Timeout        time.Duration
	Now            func() time.Time
	Metrics        *metrics.Metrics
}

// NewCollector returns a collector backed by gofeed with a finite HTTP timeout.
func NewCollector(policy Policy, entriesPerFeed, summaryMax int, loc *time.Location, timeout time.Duration) *Collector {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "devops-digest/1.0"

	return &Collector{
		Parser:         parser,
		Policy:         policy,
		EntriesPerFeed: entriesPerFeed,
		SummaryMax:     summaryMax,
		Location:       loc,
		Timeout:        timeout,
		Now:            time.Now,
	}
}

// Collect downloads and parses all feeds. A failing feed is logged and
// skipped; the result keeps feed order, then entry order.
func (c *Collector) Collect(ctx context.Context, urls []string) []news.Item {
	var all []news.Item
	successCount := 0

	for _, url := range urls {
		items, err := c.collectOne(ctx, url)
		if err != nil {
			logger.Warn("feed skipped", "url", url, "error", err)
			c.Metrics.IncrementFeedsFailed()
			continue
		}
		all = append(all, items...)
		successCount++
		c.Metrics.IncrementFeedsOK()
		logger.Debug("feed loaded", "url", url, "kept", len(items))
	}

	c.Metrics.AddItemsCollected(len(all))
	logger.Info("feeds processed", "ok", successCount, "total", len(urls), "items", len(all), "policy", string(c.Policy))
	return all
}

func (c *Collector) collectOne(ctx context.Context, url string) ([]news.Item, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	feed, err := c.Parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = url
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	runAt := now()

	var items []news.Item
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		switch c.Policy {
		case PolicyLatest:
			if len(items) >= c.EntriesPerFeed {
				return items, nil
			}
		default:
			if !news.IsYesterday(publishedAt(entry), runAt, c.Location) {
				continue
			}
		}
		items = append(items, c.normalize(entry, source))
	}
	return items, nil
}

func (c *Collector) normalize(entry *gofeed.Item, source string) news.Item {
	raw := entry.Description
	if strings.TrimSpace(raw) == "" {
		raw = entry.Content
	}
	return news.Item{
		Title:   strings.TrimSpace(news.CleanHTML(entry.Title)),
		Link:    strings.TrimSpace(entry.Link),
		Summary: news.Summarize(raw, c.SummaryMax),
		Source:  source,
	}
}

// publishedAt falls back to the update time for Atom feeds without a publish date.
func publishedAt(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}
