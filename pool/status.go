package pool

import "tinyimg/inventory"

// DeviceStatus is one device's entry in a pool snapshot.
type DeviceStatus struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Memory string `json:"memory"`
	Busy   bool   `json:"busy"`
	// ModelID is the model holding the device, empty when free.
	ModelID string `json:"model_id,omitempty"`
}

// Status is a point-in-time snapshot of the pool for status reporting.
// It may be momentarily stale relative to concurrent Acquire/Release;
// it is a monitoring read, not a correctness-critical one.
type Status struct {
	DeviceCount int            `json:"device_count"`
	FreeCount   int            `json:"free_count"`
	BusyCount   int            `json:"busy_count"`
	Waiting     int            `json:"waiting"`
	Devices     []DeviceStatus `json:"devices"`
}

// Describe returns a non-blocking snapshot of pool state.
func (p *Pool) Describe() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		DeviceCount: len(p.slots),
		Waiting:     p.waiters.Len(),
		Devices:     make([]DeviceStatus, 0, len(p.slots)),
	}

	for i := range p.slots {
		s := &p.slots[i]
		ds := DeviceStatus{
			Index:  s.device.Index,
			Kind:   s.device.Kind.String(),
			Name:   s.device.Name,
			Memory: s.device.Memory,
			Busy:   s.busy,
		}
		if s.busy {
			st.BusyCount++
			if s.lease != nil {
				ds.ModelID = s.lease.ModelID
			}
		} else {
			st.FreeCount++
		}
		st.Devices = append(st.Devices, ds)
	}

	return st
}

// Devices returns the immutable device inventory backing the pool.
func (p *Pool) Devices() []inventory.Device {
	return p.devices
}
