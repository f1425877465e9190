package repo

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsStatsAndSummary(t *testing.T) {
	m := NewMetrics("test")
	m.Record(FetchEvent{Repository: "albums", Type: FetchStart})
	m.Record(FetchEvent{Repository: "albums", Type: FetchComplete, Duration: 10 * time.Millisecond})
	m.Record(FetchEvent{Repository: "albums", Type: FetchComplete, Duration: 30 * time.Millisecond})
	m.Record(FetchEvent{Repository: "labels", Type: FetchError, Duration: 5 * time.Millisecond})
	m.Record(FetchEvent{Repository: "labels", Type: FetchSuperseded})

	s, ok := m.Stats("albums")
	require.True(t, ok)
	assert.Equal(t, 2, s.FetchCount)
	assert.Equal(t, 20*time.Millisecond, s.AvgLatency())

	s, _ = m.Stats("labels")
	assert.Equal(t, 1, s.ErrorCount)

	summary := m.Summary()
	assert.Equal(t, 2, summary.Repositories)
	assert.Equal(t, 30*time.Millisecond, summary.P50Latency)
	assert.InDelta(t, 1.0/3.0, summary.ErrorRate, 0.001)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("albums", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("labels", "superseded")))
}

func TestMetricsRingBuffer(t *testing.T) {
	m := NewMetrics("")
	for range maxEvents + 10 {
		m.Record(FetchEvent{Repository: "albums", Type: FetchStart})
	}
	assert.Len(t, m.Events(), maxEvents)
}

func TestMetricsLoadingGauge(t *testing.T) {
	m := NewMetrics("test")
	m.SetLoading("albums", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loading.WithLabelValues("albums")))
	m.SetLoading("albums", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.loading.WithLabelValues("albums")))

	count, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Positive(t, count)
}
