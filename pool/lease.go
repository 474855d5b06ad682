package pool

import (
	"time"

	"github.com/google/uuid"

	"tinyimg/inventory"
)

// Lease is the capability token for exclusive use of one device by one
// in-flight request. It is single-use: the pool owns the device until
// Release is called, and releasing the same lease twice is a
// programming error surfaced as ErrDoubleRelease.
type Lease struct {
	// ID uniquely identifies this lease for logging and history.
	ID string
	// Device is the leased device. Read-only.
	Device *inventory.Device
	// ModelID is the model the lease was acquired for.
	ModelID string
	// AcquiredAt is when the lease was granted.
	AcquiredAt time.Time

	// slot is the pool slot index backing this lease.
	slot int
	// released is guarded by the pool mutex.
	released bool
	// warmed is set by the holder once the model's backend state is
	// loaded on the device; read at release under the pool mutex.
	warmed bool
}

// MarkWarm records that the model's backend state was loaded on the
// leased device, so later acquires for the same model prefer it. Must
// be called by the lease holder before Release.
func (l *Lease) MarkWarm() {
	l.warmed = true
}

// newLease is called with the pool mutex held.
func newLease(slot int, device *inventory.Device, modelID string) *Lease {
	return &Lease{
		ID:         uuid.NewString(),
		Device:     device,
		ModelID:    modelID,
		AcquiredAt: time.Now(),
		slot:       slot,
	}
}
