package ratelimit

import (
	"context"
	"errors"
	"sync"

	"github.com/deusflow/devops-digest/internal/llm"
	"github.com/deusflow/devops-digest/internal/logger"
	"github.com/deusflow/devops-digest/internal/metrics"
)

var ErrBudgetExhausted = errors.New("AI request budget exhausted for this run")

// Budget caps the number of generation calls made in one run. It wraps a
// Generator and counts every call, successful or not.
type Budget struct {
	mu      sync.Mutex
	next    llm.Generator
	max     int // 0 = unlimited
	used    int
	metrics *metrics.Metrics
}

// NewBudget wraps gen with a per-run limit; max <= 0 disables the limit.
func NewBudget(gen llm.Generator, max int, m *metrics.Metrics) *Budget {
	return &Budget{next: gen, max: max, metrics: m}
}

func (b *Budget) Generate(ctx context.Context, req llm.Request) (string, error) {
	b.mu.Lock()
	if b.max > 0 && b.used >= b.max {
		b.mu.Unlock()
		logger.Warn("AI request budget reached", "used", b.used, "limit", b.max)
		return "", ErrBudgetExhausted
	}
	b.used++
	used := b.used
	b.mu.Unlock()

	b.metrics.IncrementAICalls()
	logger.Debug("AI request", "used", used, "limit", b.max)

	out, err := b.next.Generate(ctx, req)
	if err != nil {
		b.metrics.IncrementAIFailures()
	}
	return out, err
}

// Used returns how many calls went through.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Limit is the configured cap; 0 means unlimited.
func (b *Budget) Limit() int {
	if b.max < 0 {
		return 0
	}
	return b.max
}
