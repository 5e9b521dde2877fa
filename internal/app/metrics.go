package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts specification loads.
type Metrics struct {
	loads     atomic.Uint64
	failures  atomic.Uint64
	bindings  atomic.Int64
	problems  atomic.Int64
	lastNs    atomic.Int64
	lastLoad  atomic.Int64
	startTime time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordLoad records a successful load.
func (m *Metrics) RecordLoad(d time.Duration, bindings, problems int) {
	m.loads.Add(1)
	m.bindings.Store(int64(bindings))
	m.problems.Store(int64(problems))
	m.lastNs.Store(d.Nanoseconds())
	m.lastLoad.Store(time.Now().UnixNano())
}

// RecordFailure records a load that left the previous bindings in place.
func (m *Metrics) RecordFailure() {
	m.failures.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Loads        uint64
	Failures     uint64
	Bindings     int
	Problems     int
	LastDuration time.Duration
	// LastLoad is zero before the first successful load.
	LastLoad time.Time
	Uptime   time.Duration
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Loads:        m.loads.Load(),
		Failures:     m.failures.Load(),
		Bindings:     int(m.bindings.Load()),
		Problems:     int(m.problems.Load()),
		LastDuration: time.Duration(m.lastNs.Load()),
		Uptime:       time.Since(m.startTime),
	}
	if ns := m.lastLoad.Load(); ns != 0 {
		s.LastLoad = time.Unix(0, ns)
	}
	return s
}
