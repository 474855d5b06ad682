// Package stats tracks process-wide request and generation statistics.
//
// The tracker is an injectable component constructed once at startup,
// never a package-level global. Scalar counters use atomics so
// concurrent writers never lose increments; per-model aggregation sits
// behind a short-held mutex. Snapshot never blocks mutators beyond that
// map lock.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker is the statistics component. Safe for concurrent use.
type Tracker struct {
	totalRequests atomic.Int64
	queueLength   atomic.Int64
	successful    atomic.Int64
	failed        atomic.Int64
	active        atomic.Int64

	mu             sync.Mutex
	perModel       map[string]*modelStats
	totalDuration  time.Duration
	completedCount int64
	lastGeneration time.Time

	startTime time.Time
}

// modelStats aggregates per-model counters.
type modelStats struct {
	requests      int64
	succeeded     int64
	failed        int64
	totalDuration time.Duration
}

// NewTracker creates a Tracker. startTime is used for uptime reporting.
func NewTracker(startTime time.Time) *Tracker {
	return &Tracker{
		perModel:  make(map[string]*modelStats),
		startTime: startTime,
	}
}

// RecordRequestStart notes an inbound request entering the admission
// queue. The queue length stays incremented until the lease is granted
// or the wait times out.
func (t *Tracker) RecordRequestStart() {
	t.totalRequests.Add(1)
	t.queueLength.Add(1)
}

// RecordLeaseGranted notes a waiter leaving the queue with a device.
func (t *Tracker) RecordLeaseGranted() {
	t.queueLength.Add(-1)
	t.active.Add(1)
}

// RecordLeaseTimeout notes a waiter leaving the queue empty-handed.
func (t *Tracker) RecordLeaseTimeout() {
	t.queueLength.Add(-1)
	t.failed.Add(1)
}

// RecordRequestRejected notes a waiter leaving the queue because the
// request could not be serviced at all, such as an empty device
// inventory. Unlike RecordLeaseTimeout this is a configuration problem,
// not a busy server, so it does not count toward failures.
func (t *Tracker) RecordRequestRejected() {
	t.queueLength.Add(-1)
}

// RecordGenerationComplete notes a successful generation for modelID
// taking elapsed wall time.
func (t *Tracker) RecordGenerationComplete(modelID string, elapsed time.Duration) {
	t.successful.Add(1)
	t.active.Add(-1)

	t.mu.Lock()
	m := t.model(modelID)
	m.requests++
	m.succeeded++
	m.totalDuration += elapsed
	t.totalDuration += elapsed
	t.completedCount++
	t.lastGeneration = time.Now()
	t.mu.Unlock()
}

// RecordGenerationFailed notes a failed generation for modelID.
func (t *Tracker) RecordGenerationFailed(modelID string) {
	t.failed.Add(1)
	t.active.Add(-1)

	t.mu.Lock()
	m := t.model(modelID)
	m.requests++
	m.failed++
	t.mu.Unlock()
}

// model returns the per-model entry, creating it if needed. Caller
// holds t.mu.
func (t *Tracker) model(modelID string) *modelStats {
	m, ok := t.perModel[modelID]
	if !ok {
		m = &modelStats{}
		t.perModel[modelID] = m
	}
	return m
}

// ModelStats is the per-model slice of a snapshot.
type ModelStats struct {
	Requests  int64   `json:"requests"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	AvgSecs   float64 `json:"avg_generation_seconds"`
}

// Snapshot is a point-in-time copy of all counters. Individual fields
// are internally consistent (no torn counters); the snapshot as a whole
// is eventually consistent with concurrent mutators.
type Snapshot struct {
	TotalRequests        int64                 `json:"total_requests"`
	QueueLength          int64                 `json:"queue_length"`
	SuccessfulGens       int64                 `json:"successful_generations"`
	FailedGens           int64                 `json:"failed_generations"`
	ActiveGens           int64                 `json:"active_generations"`
	AvgGenerationSeconds float64               `json:"avg_generation_seconds"`
	PerModel             map[string]ModelStats `json:"per_model"`
	StartTime            time.Time             `json:"start_time"`
	UptimeSeconds        float64               `json:"uptime_seconds"`
	LastGeneration       time.Time             `json:"last_generation,omitzero"`
}

// Snapshot returns a copy of the current statistics.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:  t.totalRequests.Load(),
		QueueLength:    t.queueLength.Load(),
		SuccessfulGens: t.successful.Load(),
		FailedGens:     t.failed.Load(),
		ActiveGens:     t.active.Load(),
		StartTime:      t.startTime,
		UptimeSeconds:  time.Since(t.startTime).Seconds(),
		PerModel:       make(map[string]ModelStats),
	}

	t.mu.Lock()
	if t.completedCount > 0 {
		snap.AvgGenerationSeconds = t.totalDuration.Seconds() / float64(t.completedCount)
	}
	snap.LastGeneration = t.lastGeneration
	for id, m := range t.perModel {
		ms := ModelStats{
			Requests:  m.requests,
			Succeeded: m.succeeded,
			Failed:    m.failed,
		}
		if m.succeeded > 0 {
			ms.AvgSecs = m.totalDuration.Seconds() / float64(m.succeeded)
		}
		snap.PerModel[id] = ms
	}
	t.mu.Unlock()

	return snap
}
