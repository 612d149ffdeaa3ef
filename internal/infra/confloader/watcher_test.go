package confloader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(WithWatcherLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.Watch("/nonexistent/dir/cli.yaml"); err == nil {
		t.Error("Watch() should fail for a missing directory")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t)
	w.StartAsync()

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "cli.yaml")
	otherFile := filepath.Join(dir, "history")
	for _, f := range []string{configFile, otherFile} {
		if err := os.WriteFile(f, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	var (
		mu      sync.Mutex
		changed []string
	)
	got := make(chan struct{}, 8)
	w.OnChange(func(path string) {
		mu.Lock()
		changed = append(changed, path)
		mu.Unlock()
		got <- struct{}{}
	})
	w.StartAsync()

	// Writes to other files in the directory are not reported.
	if err := os.WriteFile(otherFile, []byte("y"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported for the watched file")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range changed {
		if p != configFile {
			t.Errorf("reported %q, only %q is watched", p, configFile)
		}
	}
}

func TestWatcher_MultipleCallbacks(t *testing.T) {
	w := newTestWatcher(t)

	var calls int
	for i := 0; i < 3; i++ {
		w.OnChange(func(string) { calls++ })
	}
	w.notifyCallbacks("cli.yaml")

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
