// Package inventory enumerates the compute devices available to the
// process at startup. The inventory is built once and never mutated, so
// Device values are safe for unsynchronized concurrent reads.
package inventory

import "fmt"

// Kind classifies a compute device by accelerator class.
type Kind int

const (
	// KindNvidia is a discrete NVIDIA GPU detected via nvidia-smi.
	KindNvidia Kind = iota
	// KindApple is the integrated Apple Silicon GPU (shared memory).
	KindApple
	// KindCPU is the CPU fallback used when no accelerator is present.
	KindCPU
)

// String returns the canonical name for a device kind.
func (k Kind) String() string {
	switch k {
	case KindNvidia:
		return "NVIDIA"
	case KindApple:
		return "Apple"
	case KindCPU:
		return "CPU"
	default:
		return "unknown"
	}
}

// Device describes one unit of compute capacity that can run exactly
// one generation at a time. Created once during enumeration and
// immutable for the process lifetime.
type Device struct {
	// Index is the stable device identifier (nvidia-smi index, or 0
	// for the Apple/CPU single-device cases).
	Index int
	// Kind is the accelerator class.
	Kind Kind
	// Name is the human-readable device name.
	Name string
	// Memory is the advisory capacity descriptor (e.g. "24576 MiB",
	// "32GB shared", "N/A"). Informational only; never parsed by the
	// pool.
	Memory string
}

// String formats the device for logs and status output.
func (d *Device) String() string {
	return fmt.Sprintf("%s[%d] %s (%s)", d.Kind, d.Index, d.Name, d.Memory)
}
