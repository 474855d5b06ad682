package backend

import (
	"fmt"
	"strings"
	"time"
)

// Params holds parameters for a single image generation.
type Params struct {
	Prompt        string  // Required: text description of the image
	Width         int     // Image width in pixels (64-2048)
	Height        int     // Image height in pixels (64-2048)
	Steps         int     // Number of inference steps (1-100)
	GuidanceScale float64 // Guidance scale (1.0-20.0)
	Seed          int64   // Random seed (-1 for random)
}

// Parameter validation constants.
const (
	MinImageSize = 64
	MaxImageSize = 2048

	MinSteps = 1
	MaxSteps = 100

	MinGuidanceScale = 1.0
	MaxGuidanceScale = 20.0

	MaxPromptLength = 1000
)

// Default parameter values applied when a request omits them.
const (
	DefaultImageSize     = 512
	DefaultSteps         = 20
	DefaultGuidanceScale = 7.5
)

// Result is the output of one generation.
type Result struct {
	// ImageData is the PNG-encoded image.
	ImageData []byte
	// Seed is the seed actually used (resolved when the request asked
	// for a random one).
	Seed int64
	// Elapsed is the backend's own wall time for the generation.
	Elapsed time.Duration
}

// ApplyDefaults fills zero-valued optional fields in place. The seed is
// left as-is; -1 means "pick one" and is resolved by the backend.
func (p *Params) ApplyDefaults() {
	if p.Width == 0 {
		p.Width = DefaultImageSize
	}
	if p.Height == 0 {
		p.Height = DefaultImageSize
	}
	if p.Steps == 0 {
		p.Steps = DefaultSteps
	}
	if p.GuidanceScale == 0 {
		p.GuidanceScale = DefaultGuidanceScale
	}
}

// ValidateParams validates generation parameters and returns an error
// if any field is out of range. Pure function, no side effects.
func ValidateParams(p Params) error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: prompt must not be empty", ErrInvalidPrompt)
	}
	if len(p.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(p.Prompt), MaxPromptLength)
	}

	if p.Width < MinImageSize || p.Width > MaxImageSize {
		return fmt.Errorf("%w: width %d must be between %d and %d",
			ErrInvalidParams, p.Width, MinImageSize, MaxImageSize)
	}
	if p.Height < MinImageSize || p.Height > MaxImageSize {
		return fmt.Errorf("%w: height %d must be between %d and %d",
			ErrInvalidParams, p.Height, MinImageSize, MaxImageSize)
	}

	if p.Steps < MinSteps || p.Steps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidParams, p.Steps, MinSteps, MaxSteps)
	}

	if p.GuidanceScale < MinGuidanceScale || p.GuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("%w: guidance scale %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.GuidanceScale, MinGuidanceScale, MaxGuidanceScale)
	}

	if p.Seed < -1 {
		return fmt.Errorf("%w: seed must be non-negative or -1 for random", ErrInvalidParams)
	}

	return nil
}
