package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics captures shared operational stats for recomputes, charts and
// sessions.
type Metrics struct {
	datasetRows     int64
	datasetLoadedAt int64

	recomputes      int64
	emptyRecomputes int64
	recomputeNanos  int64
	lastRecomputeNs int64

	chartsRendered int64
	chartFailures  int64

	activeSessions int64
	requests       int64
	requestErrors  int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	DatasetRows     int       `json:"dataset_rows"`
	DatasetLoadedAt time.Time `json:"dataset_loaded_at"`
	Recomputes      int64     `json:"recomputes"`
	EmptyRecomputes int64     `json:"empty_recomputes"`
	AvgRecomputeMs  float64   `json:"avg_recompute_ms"`
	LastRecomputeMs float64   `json:"last_recompute_ms"`
	ChartsRendered  int64     `json:"charts_rendered"`
	ChartFailures   int64     `json:"chart_failures"`
	ActiveSessions  int       `json:"active_sessions"`
	Requests        int64     `json:"requests"`
	RequestErrors   int64     `json:"request_errors"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// SetDataset records the size and load time of the served dataset.
func (m *Metrics) SetDataset(rows int, loadedAt time.Time) {
	atomic.StoreInt64(&m.datasetRows, int64(rows))
	atomic.StoreInt64(&m.datasetLoadedAt, loadedAt.UnixNano())
}

// RecordRecompute counts one filter-and-aggregate pass.
func (m *Metrics) RecordRecompute(rows int, d time.Duration) {
	atomic.AddInt64(&m.recomputes, 1)
	if rows == 0 {
		atomic.AddInt64(&m.emptyRecomputes, 1)
	}
	atomic.AddInt64(&m.recomputeNanos, int64(d))
	atomic.StoreInt64(&m.lastRecomputeNs, int64(d))
}

// RecordChart increments rendered/failed counters based on outcome.
func (m *Metrics) RecordChart(err error) {
	if err != nil {
		atomic.AddInt64(&m.chartFailures, 1)
		return
	}
	atomic.AddInt64(&m.chartsRendered, 1)
}

// SetActiveSessions records the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	atomic.StoreInt64(&m.activeSessions, int64(n))
}

// RecordRequest counts a served request; status >= 500 counts as an error.
func (m *Metrics) RecordRequest(status int) {
	atomic.AddInt64(&m.requests, 1)
	if status >= 500 {
		atomic.AddInt64(&m.requestErrors, 1)
	}
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		DatasetRows:     int(atomic.LoadInt64(&m.datasetRows)),
		Recomputes:      atomic.LoadInt64(&m.recomputes),
		EmptyRecomputes: atomic.LoadInt64(&m.emptyRecomputes),
		LastRecomputeMs: nanosToMs(atomic.LoadInt64(&m.lastRecomputeNs)),
		ChartsRendered:  atomic.LoadInt64(&m.chartsRendered),
		ChartFailures:   atomic.LoadInt64(&m.chartFailures),
		ActiveSessions:  int(atomic.LoadInt64(&m.activeSessions)),
		Requests:        atomic.LoadInt64(&m.requests),
		RequestErrors:   atomic.LoadInt64(&m.requestErrors),
	}
	if ns := atomic.LoadInt64(&m.datasetLoadedAt); ns != 0 {
		s.DatasetLoadedAt = time.Unix(0, ns).UTC()
	}
	if s.Recomputes > 0 {
		s.AvgRecomputeMs = nanosToMs(atomic.LoadInt64(&m.recomputeNanos)) / float64(s.Recomputes)
	}
	return s
}

func nanosToMs(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}
