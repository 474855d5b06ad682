package core

import "context"

// ShutdownFunc is a cleanup function executed during graceful shutdown.
// The context carries the remaining shutdown deadline.
type ShutdownFunc func(ctx context.Context) error
