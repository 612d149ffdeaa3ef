package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

func TestHandler_HooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())

	var order []string
	for _, name := range []string{"storage", "watcher", "history"} {
		name := name
		h.OnShutdown(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"history", "watcher", "storage"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHandler_ShutdownOnce(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	calls := 0
	h.OnShutdown("count", func(ctx context.Context) error {
		calls++
		return nil
	})

	h.Shutdown()
	h.Shutdown()

	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() should be closed after Shutdown")
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := false

	h.OnShutdown("a", func(ctx context.Context) error { return errA })
	h.OnShutdown("ok", func(ctx context.Context) error { ran = true; return nil })
	h.OnShutdown("b", func(ctx context.Context) error { return errB })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() error = %v", err)
	}
	if !ran {
		t.Error("a failing hook must not stop the others")
	}
	if h.Shutdown() != err {
		t.Error("repeated Shutdown should return the same error")
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(50*time.Millisecond, logger.Nop())

	var deadline time.Time
	h.OnShutdown("deadline", func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	start := time.Now()
	h.Shutdown()

	if deadline.IsZero() || deadline.Sub(start) > time.Second {
		t.Errorf("hook deadline = %v", deadline)
	}
}

func TestHandler_Notify(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())
	parent, cancelParent := context.WithCancel(context.Background())

	ctx, stop := h.Notify(parent)
	defer stop()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Notify context should follow its parent")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second, logger.Nop())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		calls int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("n", func(ctx context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	h.Shutdown()

	if calls != 50 {
		t.Errorf("calls = %d, want 50", calls)
	}
}
