// Package backend defines the pluggable model backend contract and the
// registry that lazily loads and caches backend state per device.
package backend

import "errors"

// Sentinel errors for backend operations.
var (
	// Registry errors
	ErrModelNotRegistered = errors.New("backend: model is not registered")
	ErrLoadFailed         = errors.New("backend: failed to load model backend")

	// Generation errors
	ErrGenerationFailed = errors.New("backend: image generation failed")

	// Input validation errors
	ErrInvalidPrompt = errors.New("backend: invalid prompt")
	ErrInvalidParams = errors.New("backend: invalid generation parameters")

	// Output validation errors
	ErrImageEmpty      = errors.New("backend: image data is empty")
	ErrImageNotPNG     = errors.New("backend: image data is not a valid PNG")
	ErrImageDecodeFail = errors.New("backend: failed to decode image")
)
