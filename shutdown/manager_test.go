package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestManager_ShutdownRunsHandlersInOrder(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(time.Second))

	var order []string
	manager.Register("database", 30, func(ctx context.Context) error {
		order = append(order, "database")
		return nil
	})
	manager.Register("server", 10, func(ctx context.Context) error {
		order = append(order, "server")
		return nil
	})

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "server" || order[1] != "database" {
		t.Errorf("handler order = %v, want [server database]", order)
	}
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(time.Second))

	calls := 0
	manager.Register("once", 1, func(ctx context.Context) error { calls++; return nil })

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("first Shutdown() error: %v", err)
	}
	if err := manager.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
}

func TestManager_ShutdownReportsHandlerErrors(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(time.Second))
	manager.Register("bad", 1, func(ctx context.Context) error {
		return errors.New("close failed")
	})

	if err := manager.Shutdown(); err == nil {
		t.Error("Shutdown() = nil, want error from failing handler")
	}
}

func TestManager_WrapOperation(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(time.Second))

	ran := false
	err := manager.WrapOperation(context.Background(), "generate", func(ctx context.Context) error {
		ran = true
		if manager.ActiveOperations() != 1 {
			t.Errorf("ActiveOperations() during op = %d, want 1", manager.ActiveOperations())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WrapOperation() error: %v", err)
	}
	if !ran {
		t.Error("operation did not run")
	}
	if manager.ActiveOperations() != 0 {
		t.Errorf("ActiveOperations() after op = %d, want 0", manager.ActiveOperations())
	}
}

func TestManager_WrapOperationRejectedAfterShutdown(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(time.Second))
	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	err := manager.WrapOperation(context.Background(), "late", func(ctx context.Context) error {
		t.Error("operation ran during shutdown")
		return nil
	})
	if !errors.Is(err, ErrTrackerClosed) {
		t.Errorf("WrapOperation() = %v, want ErrTrackerClosed", err)
	}
	if !manager.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after Shutdown")
	}
}

func TestManager_ShutdownWaitsForInflight(t *testing.T) {
	manager := NewManager(zap.NewNop(), WithTimeout(2*time.Second))

	var completed atomic.Bool
	started := make(chan struct{})
	go func() {
		_ = manager.WrapOperation(context.Background(), "slow", func(ctx context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			completed.Store(true)
			return nil
		})
	}()
	<-started

	var sawCompleted bool
	manager.Register("check", 1, func(ctx context.Context) error {
		sawCompleted = completed.Load()
		return nil
	})

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if !sawCompleted {
		t.Error("cleanup ran before in-flight operation completed")
	}
}

func TestStopHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fn := StopHTTPServer(srv.Config)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		t.Errorf("StopHTTPServer() error: %v", err)
	}
}

func TestCloseFunc(t *testing.T) {
	closed := false
	fn := CloseFunc(func() error { closed = true; return nil })
	if err := fn(context.Background()); err != nil {
		t.Fatalf("CloseFunc() error: %v", err)
	}
	if !closed {
		t.Error("wrapped close did not run")
	}
}
