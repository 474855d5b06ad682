package shutdown

import (
	"context"
	"net/http"
	"strings"

	"tinyimg/core"
	"tinyimg/logging"
)

// StopHTTPServer returns a shutdown function that drains the HTTP
// listener within the shutdown context deadline.
//
// Priority recommendation: 10-19 (stop accepting traffic before
// closing the resources handlers depend on).
func StopHTTPServer(srv *http.Server) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// CloseFunc adapts a plain Close method to a ShutdownFunc.
//
// Usage:
//
//	manager.Register("history", 30, shutdown.CloseFunc(store.Close))
func CloseFunc(close func() error) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return close()
	}
}

// SyncLogger returns a shutdown function that flushes buffered log
// entries. Sync on stdout returns "invalid argument" on Linux, which is
// swallowed so it never fails the shutdown sequence.
//
// Priority recommendation: highest number registered, so the log stays
// live through every other cleanup step.
func SyncLogger(logger *logging.Logger) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := logger.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
			return err
		}
		return nil
	}
}
