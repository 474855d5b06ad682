package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"tinyimg/inventory"
)

// countingBackend records how many times it generated.
type countingBackend struct {
	generations atomic.Int64
}

func (c *countingBackend) Generate(ctx context.Context, device *inventory.Device, params Params) (*Result, error) {
	c.generations.Add(1)
	return &Result{ImageData: []byte("fake"), Seed: params.Seed}, nil
}

func testDevice(index int) *inventory.Device {
	return &inventory.Device{Index: index, Kind: inventory.KindNvidia, Name: "Test GPU"}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if r.Registered("flux") {
		t.Error("Registered(flux) = true on empty registry")
	}

	r.Register("flux", func(device *inventory.Device) (Backend, error) {
		return &countingBackend{}, nil
	})
	r.Register("sdxl", func(device *inventory.Device) (Backend, error) {
		return &countingBackend{}, nil
	})

	if !r.Registered("flux") {
		t.Error("Registered(flux) = false after Register")
	}

	models := r.Models()
	if len(models) != 2 || models[0] != "flux" || models[1] != "sdxl" {
		t.Errorf("Models() = %v, want [flux sdxl]", models)
	}
}

func TestRegistryUnknownModel(t *testing.T) {
	r := NewRegistry()

	_, err := r.Backend("nope", testDevice(0))
	if !errors.Is(err, ErrModelNotRegistered) {
		t.Errorf("Backend() error = %v, want ErrModelNotRegistered", err)
	}
}

func TestRegistryLoadsOncePerDevice(t *testing.T) {
	r := NewRegistry()

	var loads atomic.Int64
	r.Register("flux", func(device *inventory.Device) (Backend, error) {
		loads.Add(1)
		return &countingBackend{}, nil
	})

	dev0 := testDevice(0)
	dev1 := testDevice(1)

	b1, err := r.Backend("flux", dev0)
	if err != nil {
		t.Fatalf("Backend() unexpected error: %v", err)
	}
	b2, err := r.Backend("flux", dev0)
	if err != nil {
		t.Fatalf("Backend() unexpected error: %v", err)
	}
	if b1 != b2 {
		t.Error("repeated Backend() on same device returned different instances")
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d after two lookups on one device, want 1", loads.Load())
	}

	// A different device loads separately.
	if _, err := r.Backend("flux", dev1); err != nil {
		t.Fatalf("Backend() unexpected error: %v", err)
	}
	if loads.Load() != 2 {
		t.Errorf("loads = %d after second device, want 2", loads.Load())
	}
}

// TestRegistryConcurrentFirstUse verifies the loader runs exactly once
// per (model, device) pair even when many goroutines race on first use.
func TestRegistryConcurrentFirstUse(t *testing.T) {
	r := NewRegistry()

	var loads atomic.Int64
	r.Register("flux", func(device *inventory.Device) (Backend, error) {
		loads.Add(1)
		return &countingBackend{}, nil
	})

	dev := testDevice(0)
	const racers = 50

	var wg sync.WaitGroup
	backends := make([]Backend, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := r.Backend("flux", dev)
			if err != nil {
				t.Errorf("Backend() unexpected error: %v", err)
				return
			}
			backends[i] = b
		}(i)
	}
	wg.Wait()

	if loads.Load() != 1 {
		t.Errorf("loads = %d under concurrent first use, want exactly 1", loads.Load())
	}
	for i := 1; i < racers; i++ {
		if backends[i] != backends[0] {
			t.Fatalf("racer %d got a different backend instance", i)
		}
	}
}

func TestRegistryLoadErrorCached(t *testing.T) {
	r := NewRegistry()

	var loads atomic.Int64
	r.Register("broken", func(device *inventory.Device) (Backend, error) {
		loads.Add(1)
		return nil, fmt.Errorf("weights missing")
	})

	dev := testDevice(0)
	for i := 0; i < 3; i++ {
		_, err := r.Backend("broken", dev)
		if !errors.Is(err, ErrLoadFailed) {
			t.Fatalf("Backend() error = %v, want ErrLoadFailed", err)
		}
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d for failing loader, want 1 (at-most-once)", loads.Load())
	}
}
