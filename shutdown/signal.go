package shutdown

import (
	"sync"
)

// SignalCounter implements the "first signal = graceful, second = force"
// pattern used by the signal handler in Manager.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter that invokes onForce once the count
// reaches forceAfter (typically 2). onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment bumps the signal count and returns the new value. The
// onForce callback runs under the lock once the threshold is reached,
// so it should be fast or exit the process.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Reset clears the count. Used by tests.
func (s *SignalCounter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
}

// SetForceCallback replaces the force callback.
func (s *SignalCounter) SetForceCallback(onForce func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onForce = onForce
}
