package repo

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FetchEventType classifies repository fetch events.
type FetchEventType int

const (
	FetchStart FetchEventType = iota
	FetchComplete
	FetchError
	FetchSuperseded
)

func (t FetchEventType) String() string {
	switch t {
	case FetchStart:
		return "start"
	case FetchComplete:
		return "complete"
	case FetchError:
		return "error"
	case FetchSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// FetchEvent records a single repository fetch event.
type FetchEvent struct {
	Timestamp  time.Time
	Repository string
	Type       FetchEventType
	Duration   time.Duration
}

// FetchStats holds aggregate statistics for a single repository.
type FetchStats struct {
	FetchCount int
	ErrorCount int
	TotalTime  time.Duration
	LastFetch  time.Time
}

// AvgLatency returns the mean duration of settled fetches.
func (s FetchStats) AvgLatency() time.Duration {
	if s.FetchCount == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.FetchCount)
}

// MetricsSummary is a point-in-time view of fetch health.
type MetricsSummary struct {
	Repositories int
	P50Latency   time.Duration
	ErrorRate    float64
}

const maxEvents = 100

// Metrics collects fetch telemetry from repositories and exports it as
// Prometheus collectors on its own registry.
type Metrics struct {
	mu     sync.RWMutex
	events []FetchEvent // ring buffer, last maxEvents
	stats  map[string]*FetchStats

	registry *prometheus.Registry
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	loading  *prometheus.GaugeVec
}

// NewMetrics creates a collector whose series are prefixed with namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "prismctl"
	}
	m := &Metrics{
		stats:    make(map[string]*FetchStats),
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repo",
			Name:      "fetches_total",
			Help:      "Settled repository fetches by outcome (complete, error, superseded).",
		}, []string{"repository", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repo",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of applied repository fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"repository"}),
		loading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "repo",
			Name:      "loading",
			Help:      "1 while the repository has a fetch in flight.",
		}, []string{"repository"}),
	}
	m.registry.MustRegister(m.fetches, m.duration, m.loading)
	return m
}

// Registry returns the Prometheus registry holding the repository collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Record adds a fetch event to the ring buffer and updates stats.
func (m *Metrics) Record(e FetchEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	switch e.Type {
	case FetchComplete, FetchError:
		m.fetches.WithLabelValues(e.Repository, e.Type.String()).Inc()
		m.duration.WithLabelValues(e.Repository).Observe(e.Duration.Seconds())
	case FetchSuperseded:
		m.fetches.WithLabelValues(e.Repository, e.Type.String()).Inc()
	default:
		// starts only feed the ring buffer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) >= maxEvents {
		m.events = m.events[1:]
	}
	m.events = append(m.events, e)

	if e.Type == FetchComplete || e.Type == FetchError {
		s, ok := m.stats[e.Repository]
		if !ok {
			s = &FetchStats{}
			m.stats[e.Repository] = s
		}
		s.FetchCount++
		s.TotalTime += e.Duration
		s.LastFetch = e.Timestamp
		if e.Type == FetchError {
			s.ErrorCount++
		}
	}
}

// SetLoading mirrors a repository's loading flag into the loading gauge.
func (m *Metrics) SetLoading(repository string, loading bool) {
	v := 0.0
	if loading {
		v = 1
	}
	m.loading.WithLabelValues(repository).Set(v)
}

// Stats returns the aggregate statistics of one repository.
func (m *Metrics) Stats(repository string) (FetchStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[repository]
	if !ok {
		return FetchStats{}, false
	}
	return *s, true
}

// Events returns a copy of the recent events, oldest first.
func (m *Metrics) Events() []FetchEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

// Summary computes p50 latency and error rate over the recent events.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := MetricsSummary{Repositories: len(m.stats)}

	var latencies []time.Duration
	var errs, total int
	for i := len(m.events) - 1; i >= 0 && len(latencies) < 50; i-- {
		switch e := m.events[i]; e.Type {
		case FetchComplete:
			latencies = append(latencies, e.Duration)
			total++
		case FetchError:
			errs++
			total++
		default:
			// starts and superseded fetches say nothing about latency or health
		}
	}

	if len(latencies) > 0 {
		slices.Sort(latencies)
		summary.P50Latency = latencies[len(latencies)/2]
	}
	if total > 0 {
		summary.ErrorRate = float64(errs) / float64(total)
	}
	return summary
}
