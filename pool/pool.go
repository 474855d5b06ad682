// Package pool serializes access to the device inventory. It hands out
// one Lease per device, parks callers when every device is busy, and
// wakes them in arrival order as devices free up.
//
// Locking discipline: a single mutex guards all pool state. Waiters are
// a FIFO list of buffered hand-off channels; Release passes the freed
// device directly to the head waiter while holding the lock, so a grant
// can never be lost to a missed wakeup and later arrivals can never
// barge ahead of parked ones.
package pool

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"tinyimg/inventory"
)

// slot tracks the per-device state. A device is Free (busy == false) or
// Busy holding exactly one lease; there are no other states.
type slot struct {
	device *inventory.Device
	busy   bool
	lease  *Lease
	// warm records the models whose backend state was loaded on this
	// device, so Acquire can prefer a warmed device and avoid cold
	// loads.
	warm map[string]struct{}
}

// waiter is one parked Acquire call.
type waiter struct {
	modelID string
	// grant receives the lease exactly once. Capacity 1 so Release
	// never blocks handing it over.
	grant chan *Lease
}

// Pool is the resource allocation core. Safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	devices []inventory.Device
	slots   []slot
	waiters *list.List
}

// New creates a Pool over the given device inventory. The slice is
// copied; the pool never mutates the caller's devices.
func New(devices []inventory.Device) *Pool {
	p := &Pool{
		devices: make([]inventory.Device, len(devices)),
		slots:   make([]slot, len(devices)),
		waiters: list.New(),
	}
	copy(p.devices, devices)
	for i := range p.slots {
		p.slots[i] = slot{
			device: &p.devices[i],
			warm:   make(map[string]struct{}),
		}
	}
	return p
}

// Acquire obtains an exclusive lease on one device for modelID.
//
// If a device is free it is selected immediately: a device previously
// warmed for modelID is preferred, ties broken by lowest slot index.
// Otherwise the caller parks until a device frees (FIFO among waiters),
// waitTimeout elapses (ErrAcquireTimeout), or ctx is cancelled
// (ErrAcquireTimeout wrapping the context error). An empty inventory
// returns ErrNoDevicesConfigured without waiting.
//
// A waiter that times out never keeps a racing grant: if Release handed
// it a device in the same instant, the device is put back for the next
// waiter before Acquire returns.
func (p *Pool) Acquire(ctx context.Context, modelID string, waitTimeout time.Duration) (*Lease, error) {
	p.mu.Lock()

	if len(p.devices) == 0 {
		p.mu.Unlock()
		return nil, ErrNoDevicesConfigured
	}

	if i, ok := p.selectFreeLocked(modelID); ok {
		lease := p.grantLocked(i, modelID)
		p.mu.Unlock()
		return lease, nil
	}

	if waitTimeout <= 0 {
		p.mu.Unlock()
		return nil, ErrAcquireTimeout
	}

	w := &waiter{modelID: modelID, grant: make(chan *Lease, 1)}
	elem := p.waiters.PushBack(w)
	p.mu.Unlock()

	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	select {
	case lease := <-w.grant:
		return lease, nil
	case <-timer.C:
		return nil, p.abandon(elem, w, ErrAcquireTimeout)
	case <-ctx.Done():
		return nil, p.abandon(elem, w, fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err()))
	}
}

// Release returns the leased device to the pool and wakes the oldest
// parked waiter, if any. Release never blocks.
//
// Releasing a lease twice returns ErrDoubleRelease. Callers must treat
// that as a fatal lifetime bug, not a recoverable condition; the first
// release's effects stand.
func (p *Pool) Release(lease *Lease) error {
	if lease == nil {
		return fmt.Errorf("%w: nil lease", ErrDoubleRelease)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseLocked(lease)
}

// selectFreeLocked picks a free slot for modelID. Warm devices win;
// ties go to the lowest index because slots are scanned in order.
func (p *Pool) selectFreeLocked(modelID string) (int, bool) {
	best := -1
	bestWarm := false
	for i := range p.slots {
		if p.slots[i].busy {
			continue
		}
		_, isWarm := p.slots[i].warm[modelID]
		if best < 0 || (isWarm && !bestWarm) {
			best = i
			bestWarm = isWarm
		}
		if bestWarm {
			break
		}
	}
	return best, best >= 0
}

// grantLocked marks slot i busy and mints the lease.
func (p *Pool) grantLocked(i int, modelID string) *Lease {
	lease := newLease(i, p.slots[i].device, modelID)
	p.slots[i].busy = true
	p.slots[i].lease = lease
	return lease
}

// releaseLocked frees the lease's device or hands it straight to the
// head waiter.
func (p *Pool) releaseLocked(lease *Lease) error {
	if lease.released {
		return fmt.Errorf("%w: lease %s (device %s, model %s)",
			ErrDoubleRelease, lease.ID, lease.Device.Name, lease.ModelID)
	}
	lease.released = true

	s := &p.slots[lease.slot]
	// Only a holder that actually loaded the model marks the device
	// warm; abandoned grants and failed loads leave it cold.
	if lease.warmed {
		s.warm[lease.ModelID] = struct{}{}
	}

	if elem := p.waiters.Front(); elem != nil {
		w := elem.Value.(*waiter)
		p.waiters.Remove(elem)
		next := newLease(lease.slot, s.device, w.modelID)
		s.lease = next
		w.grant <- next
		return nil
	}

	s.busy = false
	s.lease = nil
	return nil
}

// abandon removes an expired or cancelled waiter from the wait set. If
// a grant raced with the expiry the lease is released back so the next
// waiter (or the free set) gets the device.
func (p *Pool) abandon(elem *list.Element, w *waiter, cause error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case lease := <-w.grant:
		// Granted in the same instant the timer fired. The caller has
		// already decided to give up; recycle the device.
		_ = p.releaseLocked(lease)
	default:
		p.waiters.Remove(elem)
	}
	return cause
}
