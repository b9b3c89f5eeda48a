// Package summarize turns the selected news into ready-to-send digest messages.
package summarize

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/news"
)

// Placeholder replaces any essence the model failed to produce.
const Placeholder = "⚠️ Could not process this news item."

type Mode string

const (
	// ModeBatch asks the model once for the whole digest.
	ModeBatch Mode = "batch"
	// ModePerItem asks once per item and sends one message per item.
	ModePerItem Mode = "per-item"
)

// Composer builds the message texts for the selected items.
type Composer interface {
	Compose(ctx context.Context, items []news.Item) []string
}

// ArticleSource supplies full article text; *scraper.Extractor implements it.
type ArticleSource interface {
	ArticleText(ctx context.Context, link string) (string, error)
}

type Options struct {
	Language string
	Location *time.Location
	Now      func() time.Time
	Articles ArticleSource // optional
}

// New returns the composer for mode.
func New(mode Mode, gen llm.Generator, opts Options) (Composer, error) {
	if opts.Language == "" {
		opts.Language = "English"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch mode {
	case ModeBatch, "":
		return &Batch{gen: gen, opts: opts}, nil
	case ModePerItem:
		return &PerItem{gen: gen, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown digest mode %q", mode)
	}
}

// content is what the model gets to read about an item.
func (o Options) content(ctx context.Context, item news.Item) string {
	if o.Articles == nil || item.Link == "" {
		return item.Summary
	}
	text, err := o.Articles.ArticleText(ctx, item.Link)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("article text unavailable, using feed summary", "link", item.Link, "error", err)
		return item.Summary
	}
	return text
}

func (o Options) today() string {
	return o.Now().In(o.Location).Format("02.01.2006")
}

// Summary is the two-part model output for one item.
type Summary struct {
	Essence string
	Tip     string
}

// renderItem is the fixed local template for one item. All values are escaped
// because the message is sent in HTML mode.
func renderItem(item news.Item, s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔹 <b>%s</b>\n", html.EscapeString(item.Title))
	fmt.Fprintf(&b, "<i>%s</i>\n\n", html.EscapeString(item.Source))
	fmt.Fprintf(&b, "📝 <b>Essence:</b> %s\n", html.EscapeString(s.Essence))
	if s.Tip != "" {
		fmt.Fprintf(&b, "💡 <b>For juniors:</b> %s\n", html.EscapeString(s.Tip))
	}
	if item.Link != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Read more</a>", html.EscapeString(item.Link))
	}
	return strings.TrimRight(b.String(), "\n")
}

func header(date string) string {
	return fmt.Sprintf("📅 <b>DevOps Digest: %s</b>", date)
}
