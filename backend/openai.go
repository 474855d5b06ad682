// openai.go implements a Backend backed by the OpenAI image API.
//
// The remote service does the actual synthesis, but the backend still
// runs under a device lease: concurrency toward the API is bounded by
// the same admission policy as local generation.
package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"tinyimg/inventory"
)

// OpenAIBackend generates images via the OpenAI DALL-E API.
//
// Thread safety: safe for concurrent use; the underlying client pools
// connections. In practice the pool serializes calls per device anyway.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string
	// Model is the image model (default: dall-e-3).
	Model string
}

// NewOpenAIBackend creates an OpenAI-backed image generator.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend: OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "dall-e-3"
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// OpenAILoader returns a Loader producing the same OpenAI backend for
// every device; the remote API has no notion of local devices, so the
// instance is shared.
func OpenAILoader(cfg OpenAIConfig) Loader {
	var (
		once      sync.Once
		shared    *OpenAIBackend
		sharedErr error
	)

	return func(device *inventory.Device) (Backend, error) {
		// The registry only serializes loads per (model, device) pair,
		// so first uses on different devices can run concurrently.
		once.Do(func() {
			shared, sharedErr = NewOpenAIBackend(cfg)
		})
		return shared, sharedErr
	}
}

// Generate implements Backend via the DALL-E API. The requested
// dimensions are snapped to the nearest size the API supports; the
// response is requested as base64 so the image bytes come back in one
// round trip.
func (b *OpenAIBackend) Generate(ctx context.Context, device *inventory.Device, params Params) (*Result, error) {
	start := time.Now()

	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	req := openai.ImageRequest{
		Prompt:         params.Prompt,
		Model:          b.model,
		Size:           snapImageSize(params.Width, params.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	}
	if b.model == "dall-e-3" {
		req.Style = openai.CreateImageStyleVivid
	}

	resp, err := b.client.CreateImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenAI: %v", ErrGenerationFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: OpenAI returned no image data", ErrGenerationFailed)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding OpenAI response: %v", ErrGenerationFailed, err)
	}

	return &Result{
		ImageData: data,
		// The API offers no seed control; report the request's seed
		// resolution so metadata stays consistent across backends.
		Seed:    ResolveSeed(params.Seed),
		Elapsed: time.Since(start),
	}, nil
}

// snapImageSize maps requested dimensions to the closest size string
// the image API accepts.
func snapImageSize(width, height int) string {
	longest := width
	if height > longest {
		longest = height
	}
	switch {
	case longest <= 256:
		return openai.CreateImageSize256x256
	case longest <= 512:
		return openai.CreateImageSize512x512
	default:
		return openai.CreateImageSize1024x1024
	}
}

var _ Backend = (*OpenAIBackend)(nil)
