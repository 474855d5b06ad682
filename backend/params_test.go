package backend

import (
	"errors"
	"strings"
	"testing"
)

// validParams returns a known-good parameter set for mutation in tests.
func validParams() Params {
	return Params{
		Prompt:        "a lighthouse at dusk",
		Width:         512,
		Height:        512,
		Steps:         20,
		GuidanceScale: 7.5,
		Seed:          -1,
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{
			name:   "valid params",
			mutate: func(p *Params) {},
		},
		{
			name:    "empty prompt",
			mutate:  func(p *Params) { p.Prompt = "" },
			wantErr: ErrInvalidPrompt,
		},
		{
			name:    "whitespace prompt",
			mutate:  func(p *Params) { p.Prompt = "   " },
			wantErr: ErrInvalidPrompt,
		},
		{
			name:    "oversized prompt",
			mutate:  func(p *Params) { p.Prompt = strings.Repeat("x", MaxPromptLength+1) },
			wantErr: ErrInvalidPrompt,
		},
		{
			name:    "width too small",
			mutate:  func(p *Params) { p.Width = MinImageSize - 1 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "width too large",
			mutate:  func(p *Params) { p.Width = MaxImageSize + 1 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "height too small",
			mutate:  func(p *Params) { p.Height = 0 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "steps too low",
			mutate:  func(p *Params) { p.Steps = 0 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "steps too high",
			mutate:  func(p *Params) { p.Steps = MaxSteps + 1 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "guidance below range",
			mutate:  func(p *Params) { p.GuidanceScale = 0.5 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "guidance above range",
			mutate:  func(p *Params) { p.GuidanceScale = 25.0 },
			wantErr: ErrInvalidParams,
		},
		{
			name:    "seed below -1",
			mutate:  func(p *Params) { p.Seed = -2 },
			wantErr: ErrInvalidParams,
		},
		{
			name:   "boundary sizes",
			mutate: func(p *Params) { p.Width, p.Height = MinImageSize, MaxImageSize },
		},
		{
			name:   "explicit seed",
			mutate: func(p *Params) { p.Seed = 12345 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			err := ValidateParams(p)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateParams() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateParams() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	p := Params{Prompt: "test", Seed: -1}
	p.ApplyDefaults()

	if p.Width != DefaultImageSize || p.Height != DefaultImageSize {
		t.Errorf("defaults: size = %dx%d, want %dx%d", p.Width, p.Height, DefaultImageSize, DefaultImageSize)
	}
	if p.Steps != DefaultSteps {
		t.Errorf("defaults: steps = %d, want %d", p.Steps, DefaultSteps)
	}
	if p.GuidanceScale != DefaultGuidanceScale {
		t.Errorf("defaults: guidance = %v, want %v", p.GuidanceScale, DefaultGuidanceScale)
	}
	if p.Seed != -1 {
		t.Errorf("defaults must not touch the seed, got %d", p.Seed)
	}
}

func TestApplyDefaultsPreservesExplicit(t *testing.T) {
	p := Params{Prompt: "test", Width: 1024, Height: 768, Steps: 50, GuidanceScale: 10}
	p.ApplyDefaults()

	if p.Width != 1024 || p.Height != 768 || p.Steps != 50 || p.GuidanceScale != 10 {
		t.Errorf("explicit values overwritten: %+v", p)
	}
}

func TestRandomSeed(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		seed := RandomSeed()
		if seed < 0 {
			t.Fatalf("RandomSeed() = %d, want non-negative", seed)
		}
		seen[seed] = true
	}
	// 100 crypto-random seeds colliding down to a handful would mean
	// the generator is broken.
	if len(seen) < 90 {
		t.Errorf("RandomSeed() produced only %d distinct values in 100 draws", len(seen))
	}
}

func TestResolveSeed(t *testing.T) {
	if got := ResolveSeed(777); got != 777 {
		t.Errorf("ResolveSeed(777) = %d, want 777", got)
	}
	if got := ResolveSeed(-1); got < 0 {
		t.Errorf("ResolveSeed(-1) = %d, want non-negative", got)
	}
}
