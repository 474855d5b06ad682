// Package shutdown provides graceful shutdown coordination: an
// in-flight operation tracker, a prioritized cleanup registry, and a
// repeated-signal force-exit counter, composed by Manager.
package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTrackerClosed is returned when starting an operation on a closed tracker.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// ErrWaitTimeout is returned when Wait times out before all operations complete.
var ErrWaitTimeout = errors.New("wait timeout: operations did not complete in time")

// OperationTracker counts in-flight operations so shutdown can drain
// them before running cleanup.
//
// Usage:
//
//	if !tracker.Start() {
//	    return // shutting down, reject request
//	}
//	defer tracker.Done()
type OperationTracker struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active int64
	closed bool
}

// NewOperationTracker creates an OperationTracker ready to track operations.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start attempts to begin tracking a new operation. Returns false if the
// tracker is closed, in which case the caller must reject the operation.
// A true return obligates the caller to call Done exactly once.
func (t *OperationTracker) Start() bool {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return false
	}
	t.mu.RUnlock()

	// Re-check under the write lock so Close cannot race a Start.
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.wg.Add(1)
	atomic.AddInt64(&t.active, 1)
	t.mu.Unlock()
	return true
}

// Done marks an operation complete. Call exactly once per successful Start.
func (t *OperationTracker) Done() {
	atomic.AddInt64(&t.active, -1)
	t.wg.Done()
}

// Wait blocks until all tracked operations finish or the timeout expires.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// Close prevents new operations from starting. In-flight operations
// continue until they call Done.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of currently tracked operations.
func (t *OperationTracker) ActiveCount() int64 {
	return atomic.LoadInt64(&t.active)
}

// IsClosed reports whether the tracker has been closed.
func (t *OperationTracker) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
