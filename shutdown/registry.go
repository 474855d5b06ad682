package shutdown

import (
	"context"
	"sort"
	"sync"

	"tinyimg/core"
)

type shutdownEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower = earlier execution
}

// ShutdownRegistry holds cleanup functions executed in priority order
// during shutdown.
//
// Priority ranges used by this server:
//   - 10-19: stop the HTTP listener
//   - 20-29: drain workers
//   - 30-39: close databases
//   - 40-49: flush logs
type ShutdownRegistry struct {
	mu      sync.Mutex
	entries []shutdownEntry
	closed  bool
}

// NewShutdownRegistry creates an empty registry.
func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{
		entries: make([]shutdownEntry, 0),
	}
}

// Register adds a cleanup function. Lower priority values execute
// earlier. Registration after Shutdown is a no-op.
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.entries = append(r.entries, shutdownEntry{
		name:     name,
		fn:       fn,
		priority: priority,
	})
}

// Shutdown runs every registered function in priority order, collecting
// errors. All functions run even when earlier ones fail. The registry is
// closed afterwards; a second call returns nil.
func (r *ShutdownRegistry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	sorted := make([]shutdownEntry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	var errs []error
	for _, entry := range sorted {
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// Names returns the registered names in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]shutdownEntry, len(r.entries))
	copy(sorted, r.entries)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	names := make([]string, len(sorted))
	for i, entry := range sorted {
		names[i] = entry.name
	}
	return names
}

// Count returns the number of registered functions.
func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown has run.
func (r *ShutdownRegistry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
