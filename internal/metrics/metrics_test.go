package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.IncrementFeedsOK()
	m.IncrementFeedsOK()
	m.IncrementFeedsFailed()
	m.AddItemsCollected(12)
	m.SetItemsSelected(3)
	m.IncrementAICalls()
	m.IncrementAIFailures()
	m.IncrementMessagesSent()
	m.IncrementMessagesFailed()
	m.Finish()

	stats := m.GetStats()
	require.Equal(t, 2, stats["feeds_ok"])
	require.Equal(t, 1, stats["feeds_failed"])
	require.Equal(t, 12, stats["items_collected"])
	require.Equal(t, 3, stats["items_selected"])
	require.Equal(t, 1, stats["ai_calls"])
	require.Equal(t, 1, stats["ai_failures"])
	require.Equal(t, 1, stats["messages_sent"])
	require.Equal(t, 1, stats["messages_failed"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncrementFeedsOK()
		m.AddItemsCollected(3)
		m.Finish()
		m.Log()
	})
	require.Empty(t, m.GetStats())
}
