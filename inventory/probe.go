// probe.go implements the runtime environment probes used to build the
// inventory. Probing follows the same order as the original detection
// logic: NVIDIA GPUs first, then the Apple Silicon GPU on darwin/arm64,
// then the CPU fallback.
package inventory

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Prober reads the set of accelerator devices present on the host.
// The abstraction allows mock implementations during testing.
type Prober interface {
	// ProbeDevices returns the accelerator devices found, or an empty
	// slice if none are present. An error means probing itself failed
	// in a way that should abort startup, not that no device exists.
	ProbeDevices() ([]Device, error)
}

// probeTimeout bounds a single external probe command.
const probeTimeout = 5 * time.Second

// SystemProber is the production Prober. It shells out to nvidia-smi
// and, failing that, checks for an Apple Silicon GPU via sysctl.
type SystemProber struct {
	// NvidiaSMIPath is the nvidia-smi executable. Empty means
	// "nvidia-smi" resolved via PATH.
	NvidiaSMIPath string
	// goos and goarch are overridable for tests; empty means the
	// values of the running process.
	goos   string
	goarch string
}

// NewSystemProber creates a SystemProber with default paths.
func NewSystemProber() *SystemProber {
	return &SystemProber{NvidiaSMIPath: "nvidia-smi"}
}

// ProbeDevices implements Prober.
func (p *SystemProber) ProbeDevices() ([]Device, error) {
	if devices, err := p.probeNvidia(); err == nil && len(devices) > 0 {
		return devices, nil
	}
	// nvidia-smi missing or failing is the common no-GPU case, not a
	// startup error. Fall through to the Apple probe.
	if p.os() == "darwin" && p.arch() == "arm64" {
		if dev, ok := p.probeAppleSilicon(); ok {
			return []Device{dev}, nil
		}
	}
	return nil, nil
}

func (p *SystemProber) os() string {
	if p.goos != "" {
		return p.goos
	}
	return runtime.GOOS
}

func (p *SystemProber) arch() string {
	if p.goarch != "" {
		return p.goarch
	}
	return runtime.GOARCH
}

// probeNvidia queries nvidia-smi for the installed GPUs.
func (p *SystemProber) probeNvidia() ([]Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	smi := p.NvidiaSMIPath
	if smi == "" {
		smi = "nvidia-smi"
	}

	cmd := exec.CommandContext(ctx, smi,
		"--query-gpu=index,memory.total,name",
		"--format=csv,noheader")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("nvidia-smi failed: %w (stderr: %s)", err, stderr.String())
	}

	return ParseNvidiaSMIOutput(stdout.String())
}

// probeAppleSilicon reports the unified-memory GPU on Apple Silicon.
func (p *SystemProber) probeAppleSilicon() (Device, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return Device{}, false
	}

	memBytes, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil || memBytes <= 0 {
		return Device{}, false
	}

	return Device{
		Index:  0,
		Kind:   KindApple,
		Name:   "Apple Silicon GPU",
		Memory: fmt.Sprintf("%dGB shared", memBytes/(1024*1024*1024)),
	}, true
}

// ParseNvidiaSMIOutput parses the CSV output of
// `nvidia-smi --query-gpu=index,memory.total,name --format=csv,noheader`.
// One device per line. This is a pure function with no side effects.
func ParseNvidiaSMIOutput(output string) ([]Device, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, fmt.Errorf("empty nvidia-smi output")
	}

	reader := csv.NewReader(strings.NewReader(output))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	devices := make([]Device, 0, len(records))
	for _, record := range records {
		if len(record) < 3 {
			return nil, fmt.Errorf("unexpected field count: got %d, expected 3", len(record))
		}

		idx, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse device index: %w", err)
		}

		devices = append(devices, Device{
			Index:  idx,
			Kind:   KindNvidia,
			Name:   strings.TrimSpace(record[2]),
			Memory: strings.TrimSpace(record[1]),
		})
	}

	return devices, nil
}

// CPUFallbackDevice builds the device used when no accelerator exists.
func CPUFallbackDevice() Device {
	return Device{
		Index:  0,
		Kind:   KindCPU,
		Name:   fmt.Sprintf("CPU: %s/%s", runtime.GOOS, runtime.GOARCH),
		Memory: "N/A",
	}
}
