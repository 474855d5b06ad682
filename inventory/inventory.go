package inventory

// Options configures inventory construction.
type Options struct {
	// AllowCPUFallback controls whether a CPU device is added when no
	// accelerator is found. When false an accelerator-less host yields
	// an empty inventory, which the pool surfaces as a configuration
	// error on the first acquire.
	AllowCPUFallback bool
}

// DefaultOptions returns the options matching the original server
// behavior: always fall back to the CPU.
func DefaultOptions() Options {
	return Options{AllowCPUFallback: true}
}

// Enumerate probes the runtime environment once and returns the ordered
// device inventory. The returned slice is never mutated afterward.
//
// A nil prober uses the production SystemProber. An error is returned
// only when probing itself fails unrecoverably; a host with no
// accelerators is not an error.
func Enumerate(prober Prober, opts Options) ([]Device, error) {
	if prober == nil {
		prober = NewSystemProber()
	}

	devices, err := prober.ProbeDevices()
	if err != nil {
		return nil, err
	}

	if len(devices) == 0 && opts.AllowCPUFallback {
		devices = append(devices, CPUFallbackDevice())
	}

	return devices, nil
}
