package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/news"
)

// TopK is how many items make it into the digest.
const TopK = 3

const rankPrompt = `You are a Tech Lead. Pick the %d most critical news items for a DevOps engineer.
Ignore marketing, look for real technology changes.
List:
%s
Return ONLY a JSON array of indices, for example: [0, 2, 5].`

// Selector asks the model to rank items and keeps the best TopK.
type Selector struct {
	gen llm.Generator
}

func New(gen llm.Generator) *Selector {
	return &Selector{gen: gen}
}

// Select never fails: with TopK or fewer items it returns them untouched
// without asking the model, and on any model or parse error it falls back
// to the first TopK items.
func (s *Selector) Select(ctx context.Context, items []news.Item) []news.Item {
	if len(items) <= TopK {
		return items
	}

	logger.Info("ranking news with AI", "candidates", len(items), "keep", TopK)

	reply, err := s.gen.Generate(ctx, llm.Request{
		Prompt:      buildPrompt(items),
		Temperature: llm.Float32(0),
	})
	if err != nil {
		logger.Error("AI ranking failed, using first items", "error", err)
		return firstK(items)
	}

	selected, err := resolve(reply, items)
	if err != nil {
		logger.Error("AI ranking reply unusable, using first items", "error", err, "reply", reply)
		return firstK(items)
	}

	logger.Info("AI picked news", "titles", news.Titles(selected))
	return selected
}

func buildPrompt(items []news.Item) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, item.Source, item.Title)
	}
	return fmt.Sprintf(rankPrompt, TopK, b.String())
}

// resolve maps the reply indices onto items. Out of range and repeated
// indices are ignored; at least one valid index is required.
func resolve(reply string, items []news.Item) ([]news.Item, error) {
	var indices []int
	if err := json.Unmarshal([]byte(llm.ExtractJSONArray(reply)), &indices); err != nil {
		return nil, fmt.Errorf("decode indices: %w", err)
	}

	seen := make(map[int]bool, len(indices))
	selected := make([]news.Item, 0, TopK)
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) || seen[idx] {
			continue
		}
		seen[idx] = true
		selected = append(selected, items[idx])
		if len(selected) == TopK {
			break
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no valid index in %v", indices)
	}
	return selected, nil
}

func firstK(items []news.Item) []news.Item {
	out := make([]news.Item, TopK)
	copy(out, items[:TopK])
	return out
}
