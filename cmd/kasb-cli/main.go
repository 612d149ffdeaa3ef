package main

import (
	"context"
	"os"
	"time"

	"github.com/kasbhub/kasb-go/internal/cli/command"
	"github.com/kasbhub/kasb-go/internal/infra/shutdown"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	// interruptGrace is how long a blocked prompt may keep the process
	// alive after SIGINT.
	interruptGrace = 2 * time.Second
)

func main() {
	h := shutdown.NewHandler(shutdownTimeout, logger.Default())
	ctx, stop := h.Notify(context.Background())

	finished := make(chan struct{})
	go func() {
		select {
		case <-finished:
			return
		case <-ctx.Done():
		}
		select {
		case <-finished:
		case <-time.After(interruptGrace):
			h.Shutdown()
			os.Exit(130)
		}
	}()

	app := command.App()
	command.AttachShutdown(app, h)
	err := app.RunContext(ctx, os.Args)

	close(finished)
	stop()
	if serr := h.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
