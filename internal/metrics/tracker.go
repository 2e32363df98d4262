// Package metrics tracks poll cycles, mutations and change feed health.
package metrics

import (
	"sync"
	"time"
)

// failureWindow bounds the recent-failure count shown in the status bar.
const failureWindow = 60 * time.Second

// MutationStats counts outcomes for one action.
type MutationStats struct {
	Succeeded int64
	Failed    int64
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	CyclesSucceeded int64
	CyclesFailed    int64
	CyclesSkipped   int64
	CyclesQueued    int64

	// RecentFailures counts failed cycles in the last minute
	RecentFailures int

	LastSuccess       time.Time
	LastError         string
	LastErrorAt       time.Time
	LastCycleDuration time.Duration

	Mutations map[string]MutationStats

	ChangeFeedStatus string
	Uptime           time.Duration
}

// Healthy reports whether the last cycle succeeded.
func (s MetricsSnapshot) Healthy() bool {
	return !s.LastSuccess.IsZero() && !s.LastErrorAt.After(s.LastSuccess)
}

// MetricsTracker provides thread-safe metrics tracking.
type MetricsTracker struct {
	mu sync.RWMutex

	cyclesSucceeded int64
	cyclesFailed    int64
	cyclesSkipped   int64
	cyclesQueued    int64
	failureTimes    []time.Time

	lastSuccess  time.Time
	lastError    string
	lastErrorAt  time.Time
	lastDuration time.Duration

	mutations map[string]MutationStats
	feed      string
	startTime time.Time
	now       func() time.Time
}

// NewMetricsTracker creates a new MetricsTracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		failureTimes: make([]time.Time, 0, 16),
		mutations:    make(map[string]MutationStats),
		startTime:    time.Now(),
		now:          time.Now,
	}
}

// RecordCycle records the outcome of one snapshot cycle.
func (m *MetricsTracker) RecordCycle(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.lastDuration = duration
	if err == nil {
		m.cyclesSucceeded++
		m.lastSuccess = now
		return
	}

	m.cyclesFailed++
	m.lastError = err.Error()
	m.lastErrorAt = now
	m.failureTimes = append(m.failureTimes, now)
	m.pruneFailures(now)
}

// IncrementSkipped counts a tick dropped because a cycle was in flight.
func (m *MetricsTracker) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cyclesSkipped++
}

// IncrementQueued counts a forced refresh deferred behind a running cycle.
func (m *MetricsTracker) IncrementQueued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cyclesQueued++
}

// RecordMutation counts one mutation outcome by action.
func (m *MetricsTracker) RecordMutation(action string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.mutations[action]
	if err != nil {
		stats.Failed++
	} else {
		stats.Succeeded++
	}
	m.mutations[action] = stats
}

// SetChangeFeedStatus sets the change feed connection status.
func (m *MetricsTracker) SetChangeFeedStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = status
}

// pruneFailures drops failures older than the window.
// Must be called with lock held.
func (m *MetricsTracker) pruneFailures(now time.Time) {
	cutoff := now.Add(-failureWindow)
	keep := 0
	for keep < len(m.failureTimes) && !m.failureTimes[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		m.failureTimes = append(m.failureTimes[:0], m.failureTimes[keep:]...)
	}
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	cutoff := now.Add(-failureWindow)
	recent := 0
	for _, ts := range m.failureTimes {
		if ts.After(cutoff) {
			recent++
		}
	}

	mutations := make(map[string]MutationStats, len(m.mutations))
	for k, v := range m.mutations {
		mutations[k] = v
	}

	return MetricsSnapshot{
		CyclesSucceeded:   m.cyclesSucceeded,
		CyclesFailed:      m.cyclesFailed,
		CyclesSkipped:     m.cyclesSkipped,
		CyclesQueued:      m.cyclesQueued,
		RecentFailures:    recent,
		LastSuccess:       m.lastSuccess,
		LastError:         m.lastError,
		LastErrorAt:       m.lastErrorAt,
		LastCycleDuration: m.lastDuration,
		Mutations:         mutations,
		ChangeFeedStatus:  m.feed,
		Uptime:            now.Sub(m.startTime),
	}
}
