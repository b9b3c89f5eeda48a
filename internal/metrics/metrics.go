package metrics

import (
	"sync"
	"time"

	"github.com/deusflow/devops-digest/internal/logger"
)

// Metrics holds the counters of a single run. A nil *Metrics is valid and
// records nothing, so components can be used without one.
type Metrics struct {
	mu sync.Mutex

	// Counters
	FeedsOK        int
	FeedsFailed    int
	ItemsCollected int
	ItemsSelected  int
	AICalls        int
	AIFailures     int
	MessagesSent   int
	MessagesFailed int

	// Timings
	StartedAt time.Time
	Duration  time.Duration
}

func New() *Metrics {
	return &Metrics{StartedAt: time.Now()}
}

func (m *Metrics) add(f func(*Metrics)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f(m)
}

func (m *Metrics) IncrementFeedsOK()        { m.add(func(m *Metrics) { m.FeedsOK++ }) }
func (m *Metrics) IncrementFeedsFailed()    { m.add(func(m *Metrics) { m.FeedsFailed++ }) }
func (m *Metrics) IncrementAICalls()        { m.add(func(m *Metrics) { m.AICalls++ }) }
func (m *Metrics) IncrementAIFailures()     { m.add(func(m *Metrics) { m.AIFailures++ }) }
func (m *Metrics) IncrementMessagesSent()   { m.add(func(m *Metrics) { m.MessagesSent++ }) }
func (m *Metrics) IncrementMessagesFailed() { m.add(func(m *Metrics) { m.MessagesFailed++ }) }

func (m *Metrics) AddItemsCollected(n int) { m.add(func(m *Metrics) { m.ItemsCollected += n }) }
func (m *Metrics) SetItemsSelected(n int)  { m.add(func(m *Metrics) { m.ItemsSelected = n }) }

// Finish stamps the run duration.
func (m *Metrics) Finish() {
	m.add(func(m *Metrics) { m.Duration = time.Since(m.StartedAt) })
}

func (m *Metrics) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]interface{}{
		"feeds_ok":        m.FeedsOK,
		"feeds_failed":    m.FeedsFailed,
		"items_collected": m.ItemsCollected,
		"items_selected":  m.ItemsSelected,
		"ai_calls":        m.AICalls,
		"ai_failures":     m.AIFailures,
		"messages_sent":   m.MessagesSent,
		"messages_failed": m.MessagesFailed,
		"duration_ms":     m.Duration.Milliseconds(),
	}
}

// Log writes the run summary as one structured record.
func (m *Metrics) Log() {
	stats := m.GetStats()
	args := make([]any, 0, len(stats)*2)
	for _, k := range []string{
		"feeds_ok", "feeds_failed", "items_collected", "items_selected",
		"ai_calls", "ai_failures", "messages_sent", "messages_failed", "duration_ms",
	} {
		if v, ok := stats[k]; ok {
			args = append(args, k, v)
		}
	}
	logger.Info("run finished", args...)
}
