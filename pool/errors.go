package pool

import "errors"

// Sentinel errors for pool operations.
var (
	// ErrNoDevicesConfigured means the inventory is empty after
	// applying the configured fallback policy. This is a fatal
	// misconfiguration, not a transient condition; callers should not
	// retry.
	ErrNoDevicesConfigured = errors.New("pool: no compute devices configured")

	// ErrAcquireTimeout means no device became free within the wait
	// window, or the caller's context was cancelled while waiting.
	// Recoverable; callers typically report "server busy".
	ErrAcquireTimeout = errors.New("pool: timeout waiting for a free device")

	// ErrDoubleRelease means a lease was released more than once. This
	// indicates a lifetime bug in the caller and must never be
	// swallowed.
	ErrDoubleRelease = errors.New("pool: lease already released")
)
