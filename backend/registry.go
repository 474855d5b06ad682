package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tinyimg/inventory"
)

// Backend performs image synthesis on a specific device. Implementations
// are opaque to the pool and orchestrator.
//
// A Backend instance is only ever invoked by the single lease currently
// holding its device; the pool's busy invariant provides the exclusion,
// so implementations need no internal locking around device state.
type Backend interface {
	// Generate synthesizes an image for params on the given device.
	// The call may take seconds to minutes; ctx carries cancellation.
	Generate(ctx context.Context, device *inventory.Device, params Params) (*Result, error)
}

// Loader constructs a model's backend for one device. Loading is
// typically heavyweight (model weights); the registry guarantees it
// runs at most once per (model, device) pair.
type Loader func(device *inventory.Device) (Backend, error)

// handleKey identifies one cached backend instance.
type handleKey struct {
	modelID string
	device  int
}

// handle is the once-guarded cache entry for a (model, device) pair.
type handle struct {
	once    sync.Once
	backend Backend
	err     error
}

// Registry maps model ids to loaders and caches loaded backends per
// device. Registering a new model requires no changes to the pool or
// orchestrator. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	loaders map[string]Loader
	handles map[handleKey]*handle
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]Loader),
		handles: make(map[handleKey]*handle),
	}
}

// Register adds (or replaces) the loader for modelID.
func (r *Registry) Register(modelID string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[modelID] = loader
}

// Models returns the registered model ids in sorted order.
func (r *Registry) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	models := make([]string, 0, len(r.loaders))
	for id := range r.loaders {
		models = append(models, id)
	}
	sort.Strings(models)
	return models
}

// Registered reports whether modelID has a loader.
func (r *Registry) Registered(modelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaders[modelID]
	return ok
}

// Backend returns the backend for modelID on device, loading it on
// first use. Concurrent first uses for the same pair are serialized so
// the loader runs at most once; its outcome (success or failure) is
// cached for the process lifetime.
func (r *Registry) Backend(modelID string, device *inventory.Device) (Backend, error) {
	r.mu.Lock()
	loader, ok := r.loaders[modelID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrModelNotRegistered, modelID)
	}

	key := handleKey{modelID: modelID, device: device.Index}
	h, ok := r.handles[key]
	if !ok {
		h = &handle{}
		r.handles[key] = h
	}
	r.mu.Unlock()

	h.once.Do(func() {
		backend, err := loader(device)
		if err != nil {
			h.err = fmt.Errorf("%w: model %q on %s: %v", ErrLoadFailed, modelID, device, err)
			return
		}
		h.backend = backend
	})

	return h.backend, h.err
}
