package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/news"
)

const batchPrompt = `You are a DevOps mentor. Today is %[1]s.
Write a digest of %[2]d news items in %[3]s.

For EACH item you must give:
1. The essence (1 sentence).
2. A tip for a junior engineer (what to learn, what to pay attention to, which term to google).

IMPORTANT: Do not use markdown code blocks (` + "```html" + `). Return plain text with tags.
Only use the Telegram HTML tags <b>, <i> and <a href="...">.

Message format:

📅 <b>DevOps Digest: %[1]s</b>
(Short introduction)

----------
(News block):
🔹 <b>Headline</b>
<i>Source</i>

📝 <b>Essence:</b> (essence text)
💡 <b>For juniors:</b> (your analysis and advice)

🔗 <a href="link">Read more</a>
----------

The news:
%[4]s`

// Batch writes the whole digest with a single generation call and trusts
// the model's formatting.
type Batch struct {
	gen  llm.Generator
	opts Options
}

func (c *Batch) Compose(ctx context.Context, items []news.Item) []string {
	if len(items) == 0 {
		return nil
	}
	date := c.opts.today()

	var body strings.Builder
	for _, item := range items {
		fmt.Fprintf(&body, "TITLE: %s\nSOURCE: %s\nLINK: %s\nCONTENT: %s\n\n",
			item.Title, item.Source, item.Link, c.opts.content(ctx, item))
	}

	logger.Info("AI is writing the digest", "items", len(items), "language", c.opts.Language)
	reply, err := c.gen.Generate(ctx, llm.Request{
		Prompt: fmt.Sprintf(batchPrompt, date, len(items), c.opts.Language, body.String()),
	})
	if err == nil {
		if digest := llm.StripCodeFence(reply); digest != "" {
			return []string{digest}
		}
		err = llm.ErrEmptyResponse
	}

	logger.Error("digest generation failed, sending placeholder digest", "error", err)
	return []string{c.fallback(date, items)}
}

// fallback renders the digest locally with the placeholder as essence.
func (c *Batch) fallback(date string, items []news.Item) string {
	blocks := make([]string, 0, len(items)+1)
	blocks = append(blocks, header(date))
	for _, item := range items {
		blocks = append(blocks, renderItem(item, Summary{Essence: Placeholder}))
	}
	return strings.Join(blocks, "\n\n----------\n")
}
