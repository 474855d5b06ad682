package stats

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestTrackerRequestLifecycle(t *testing.T) {
	tr := NewTracker(time.Now())

	tr.RecordRequestStart()
	snap := tr.Snapshot()
	if snap.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", snap.TotalRequests)
	}
	if snap.QueueLength != 1 {
		t.Errorf("QueueLength = %d, want 1", snap.QueueLength)
	}

	tr.RecordLeaseGranted()
	snap = tr.Snapshot()
	if snap.QueueLength != 0 {
		t.Errorf("QueueLength after grant = %d, want 0", snap.QueueLength)
	}
	if snap.ActiveGens != 1 {
		t.Errorf("ActiveGens = %d, want 1", snap.ActiveGens)
	}

	tr.RecordGenerationComplete("flux", 2*time.Second)
	snap = tr.Snapshot()
	if snap.SuccessfulGens != 1 {
		t.Errorf("SuccessfulGens = %d, want 1", snap.SuccessfulGens)
	}
	if snap.ActiveGens != 0 {
		t.Errorf("ActiveGens after completion = %d, want 0", snap.ActiveGens)
	}
	if snap.AvgGenerationSeconds != 2.0 {
		t.Errorf("AvgGenerationSeconds = %v, want 2.0", snap.AvgGenerationSeconds)
	}
	if snap.LastGeneration.IsZero() {
		t.Error("LastGeneration not set after completion")
	}
}

func TestTrackerLeaseTimeout(t *testing.T) {
	tr := NewTracker(time.Now())

	tr.RecordRequestStart()
	tr.RecordLeaseTimeout()

	snap := tr.Snapshot()
	if snap.QueueLength != 0 {
		t.Errorf("QueueLength = %d, want 0", snap.QueueLength)
	}
	if snap.FailedGens != 1 {
		t.Errorf("FailedGens = %d, want 1", snap.FailedGens)
	}
}

func TestTrackerRequestRejected(t *testing.T) {
	tr := NewTracker(time.Now())

	tr.RecordRequestStart()
	tr.RecordRequestRejected()

	snap := tr.Snapshot()
	if snap.QueueLength != 0 {
		t.Errorf("QueueLength = %d, want 0", snap.QueueLength)
	}
	if snap.FailedGens != 0 {
		t.Errorf("FailedGens = %d, want 0", snap.FailedGens)
	}
	if snap.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", snap.TotalRequests)
	}
}

func TestTrackerPerModel(t *testing.T) {
	tr := NewTracker(time.Now())

	tr.RecordRequestStart()
	tr.RecordLeaseGranted()
	tr.RecordGenerationComplete("flux", time.Second)

	tr.RecordRequestStart()
	tr.RecordLeaseGranted()
	tr.RecordGenerationComplete("flux", 3*time.Second)

	tr.RecordRequestStart()
	tr.RecordLeaseGranted()
	tr.RecordGenerationFailed("sdxl")

	snap := tr.Snapshot()

	flux, ok := snap.PerModel["flux"]
	if !ok {
		t.Fatal("no per-model entry for flux")
	}
	if flux.Requests != 2 || flux.Succeeded != 2 || flux.Failed != 0 {
		t.Errorf("flux stats = %+v, want 2 requests, 2 succeeded", flux)
	}
	if flux.AvgSecs != 2.0 {
		t.Errorf("flux AvgSecs = %v, want 2.0", flux.AvgSecs)
	}

	sdxl, ok := snap.PerModel["sdxl"]
	if !ok {
		t.Fatal("no per-model entry for sdxl")
	}
	if sdxl.Requests != 1 || sdxl.Failed != 1 {
		t.Errorf("sdxl stats = %+v, want 1 request, 1 failed", sdxl)
	}
}

// TestTrackerConcurrent verifies no increments are lost and the average
// is exact under R concurrent successful generations.
func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker(time.Now())

	const workers = 50
	elapsed := make([]time.Duration, workers)
	var sum time.Duration
	for i := range elapsed {
		elapsed[i] = time.Duration(i+1) * 10 * time.Millisecond
		sum += elapsed[i]
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			tr.RecordRequestStart()
			tr.RecordLeaseGranted()
			tr.RecordGenerationComplete("flux", d)
		}(elapsed[i])
	}
	wg.Wait()

	snap := tr.Snapshot()
	if snap.TotalRequests != workers {
		t.Errorf("TotalRequests = %d, want %d (lost increments)", snap.TotalRequests, workers)
	}
	if snap.SuccessfulGens != workers {
		t.Errorf("SuccessfulGens = %d, want %d", snap.SuccessfulGens, workers)
	}
	if snap.QueueLength != 0 {
		t.Errorf("QueueLength = %d, want 0", snap.QueueLength)
	}
	if snap.ActiveGens != 0 {
		t.Errorf("ActiveGens = %d, want 0", snap.ActiveGens)
	}

	wantAvg := sum.Seconds() / float64(workers)
	if math.Abs(snap.AvgGenerationSeconds-wantAvg) > 1e-9 {
		t.Errorf("AvgGenerationSeconds = %v, want %v", snap.AvgGenerationSeconds, wantAvg)
	}
}

// TestTrackerSnapshotDuringWrites checks Snapshot stays usable while
// mutators run.
func TestTrackerSnapshotDuringWrites(t *testing.T) {
	tr := NewTracker(time.Now())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				tr.RecordRequestStart()
				tr.RecordLeaseGranted()
				tr.RecordGenerationComplete("flux", time.Millisecond)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snap := tr.Snapshot()
		if snap.TotalRequests < 0 || snap.QueueLength < 0 {
			t.Errorf("torn snapshot: %+v", snap)
		}
	}

	close(stop)
	wg.Wait()
}

func TestTrackerUptime(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)
	tr := NewTracker(start)

	snap := tr.Snapshot()
	if snap.UptimeSeconds < 10 {
		t.Errorf("UptimeSeconds = %v, want >= 10", snap.UptimeSeconds)
	}
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", snap.StartTime, start)
	}
}
