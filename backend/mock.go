package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"time"

	"golang.org/x/image/draw"

	"tinyimg/inventory"
)

// MockBackend renders a deterministic placeholder image instead of
// running a real diffusion model. It stands in for "flux" and "sdxl"
// on hosts without the real runtimes and is the workhorse of the test
// suite.
//
// The output is a seeded two-tone gradient rendered at a small base
// resolution and scaled to the requested dimensions, so identical
// (prompt, seed) pairs produce identical bytes.
type MockBackend struct {
	// ModelID tags the backend for logging.
	ModelID string
	// StepDelay simulates per-step inference latency. Zero renders
	// instantly.
	StepDelay time.Duration
}

// baseTile is the pre-scale render resolution.
const baseTile = 64

// NewMockBackend creates a MockBackend for modelID.
func NewMockBackend(modelID string, stepDelay time.Duration) *MockBackend {
	return &MockBackend{ModelID: modelID, StepDelay: stepDelay}
}

// MockLoader returns a Loader producing a MockBackend regardless of
// device.
func MockLoader(modelID string, stepDelay time.Duration) Loader {
	return func(device *inventory.Device) (Backend, error) {
		return NewMockBackend(modelID, stepDelay), nil
	}
}

// Generate implements Backend.
func (m *MockBackend) Generate(ctx context.Context, device *inventory.Device, params Params) (*Result, error) {
	start := time.Now()

	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	seed := ResolveSeed(params.Seed)

	// Simulate the per-step compute, honoring cancellation between
	// steps the way a real runtime would between denoising iterations.
	if m.StepDelay > 0 {
		for step := 0; step < params.Steps; step++ {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
			case <-time.After(m.StepDelay):
			}
		}
	}

	data, err := renderPlaceholder(seed, params.Width, params.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return &Result{
		ImageData: data,
		Seed:      seed,
		Elapsed:   time.Since(start),
	}, nil
}

// renderPlaceholder draws the seeded gradient tile and scales it to the
// requested size.
func renderPlaceholder(seed int64, width, height int) ([]byte, error) {
	rng := rand.New(rand.NewSource(seed))

	c1 := color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
	c2 := color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}

	tile := image.NewRGBA(image.Rect(0, 0, baseTile, baseTile))
	for y := 0; y < baseTile; y++ {
		for x := 0; x < baseTile; x++ {
			// Diagonal blend between the two seeded colors.
			t := float64(x+y) / float64(2*(baseTile-1))
			tile.SetRGBA(x, y, color.RGBA{
				R: lerp(c1.R, c2.R, t),
				G: lerp(c1.G, c2.G, t),
				B: lerp(c1.B, c2.B, t),
				A: 255,
			})
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), tile, tile.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

var _ Backend = (*MockBackend)(nil)
