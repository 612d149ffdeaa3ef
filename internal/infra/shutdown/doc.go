// Package shutdown ties the CLI lifetime to SIGINT / SIGTERM.
//
// Usage:
//
//	h := shutdown.NewHandler(5*time.Second, log)
//	ctx, stop := h.Notify(context.Background())
//	defer stop()
//	h.OnShutdown("storage", engine.Close)
//	... run with ctx ...
//	h.Shutdown()
package shutdown
