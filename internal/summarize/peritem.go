package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/news"
)

const perItemSystem = "You are an experienced DevOps engineer and mentor. Keep technical terms as they are."

const perItemPrompt = `Read the news below and answer in %s using exactly this format:

ESSENCE: <one sentence with the main point>
TIP: <what a junior engineer should learn, watch out for or google because of this>

Title: %s
Source: %s
Text: %s`

// PerItem asks for a short summary per item and wraps each one in the local template.
type PerItem struct {
	gen  llm.Generator
	opts Options
}

func (c *PerItem) Compose(ctx context.Context, items []news.Item) []string {
	messages := make([]string, 0, len(items))
	for i, item := range items {
		logger.Info("AI summary", "n", i+1, "of", len(items), "title", item.Title)

		reply, err := c.gen.Generate(ctx, llm.Request{
			System: perItemSystem,
			Prompt: fmt.Sprintf(perItemPrompt, c.opts.Language, item.Title, item.Source, c.opts.content(ctx, item)),
		})

		s := Summary{Essence: Placeholder}
		if err != nil {
			logger.Error("AI summary failed", "title", item.Title, "error", err)
		} else if parsed, ok := ParseSummary(reply); ok {
			s = parsed
		} else {
			logger.Warn("AI summary empty", "title", item.Title)
		}

		messages = append(messages, renderItem(item, s))
	}
	return messages
}

// Label patterns (case-insensitive, optional colon variants, Ukrainian labels too).
var (
	essenceLabel = regexp.MustCompile(`(?i)^\**\s*(ESSENCE|SUMMARY|СУТЬ)\s*\**\s*[:：]\s*\**\s*`)
	tipLabel     = regexp.MustCompile(`(?i)^\**\s*(TIP|ADVICE|ПОРАДА|ДЛЯ ДЖУНА)\s*\**\s*[:：]\s*\**\s*`)
)

// ParseSummary reads the ESSENCE/TIP reply. Lines after a label continue
// that section; a reply without labels becomes the essence.
func ParseSummary(reply string) (Summary, bool) {
	var essence, tip []string
	var current *[]string

	for _, raw := range strings.Split(llm.StripCodeFence(reply), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case essenceLabel.MatchString(line):
			current = &essence
			line = essenceLabel.ReplaceAllString(line, "")
		case tipLabel.MatchString(line):
			current = &tip
			line = tipLabel.ReplaceAllString(line, "")
		case current == nil:
			current = &essence
		}

		if line = strings.TrimSpace(line); line != "" {
			*current = append(*current, line)
		}
	}

	s := Summary{
		Essence: strings.Join(essence, " "),
		Tip:     strings.Join(tip, " "),
	}
	if s.Essence == "" && s.Tip == "" {
		return Summary{}, false
	}
	if s.Essence == "" {
		s.Essence = Placeholder
	}
	return s, true
}
