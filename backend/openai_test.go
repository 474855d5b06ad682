package backend

import (
	"sync"
	"testing"
)

func TestNewOpenAIBackendRequiresKey(t *testing.T) {
	if _, err := NewOpenAIBackend(OpenAIConfig{}); err == nil {
		t.Error("NewOpenAIBackend() with empty key should fail")
	}
}

func TestOpenAILoaderSharesOneClientAcrossDevices(t *testing.T) {
	loader := OpenAILoader(OpenAIConfig{APIKey: "test-key"})

	// The registry's once-guard is per (model, device) pair, so first
	// uses on different devices hit the loader concurrently.
	const workers = 8
	results := make([]Backend, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = loader(testDevice(i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("loader(device %d) error: %v", i, errs[i])
		}
		if results[i] == nil {
			t.Fatalf("loader(device %d) returned nil backend", i)
		}
		if results[i] != results[0] {
			t.Errorf("loader(device %d) returned a distinct instance", i)
		}
	}
}

func TestSnapImageSize(t *testing.T) {
	tests := []struct {
		width, height int
		want          string
	}{
		{256, 128, "256x256"},
		{512, 512, "512x512"},
		{300, 512, "512x512"},
		{1024, 1024, "1024x1024"},
		{2048, 512, "1024x1024"},
	}

	for _, tt := range tests {
		if got := snapImageSize(tt.width, tt.height); got != tt.want {
			t.Errorf("snapImageSize(%d, %d) = %q, want %q", tt.width, tt.height, got, tt.want)
		}
	}
}
