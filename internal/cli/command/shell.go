package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/kasbhub/kasb-go/internal/cli/config"
	"github.com/kasbhub/kasb-go/internal/cli/repl"
	"github.com/kasbhub/kasb-go/internal/infra/confloader"
	"github.com/kasbhub/kasb-go/internal/infra/shutdown"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

const shutdownKey = "shutdown"

// AttachShutdown lets commands register cleanup that must also run when
// the process is interrupted.
func AttachShutdown(app *cli.App, h *shutdown.Handler) {
	if app.Metadata == nil {
		app.Metadata = map[string]any{}
	}
	app.Metadata[shutdownKey] = h
}

func onShutdown(c *cli.Context, name string, fn func(context.Context) error) {
	if h, ok := c.App.Metadata[shutdownKey].(*shutdown.Handler); ok {
		h.OnShutdown(name, fn)
	}
}

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell",
		Description: "Every line runs as a kasb-cli command against one open session.\n" +
			"Changes to the config file are picked up before the next line.",
		Action: shell,
	}
}

func shell(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	if env.InShell() {
		return errors.New("already in a shell")
	}
	env.setInShell(true)
	defer env.setInShell(false)

	history := repl.NewHistory(filepath.Join(filepath.Dir(env.ConfigPath), "history"), 0)
	if err := history.Load(); err != nil {
		env.Log.Warn("load shell history", "error", err)
	}
	onShutdown(c, "shell history", func(context.Context) error { return history.Save() })
	defer func() {
		if err := history.Save(); err != nil {
			env.Log.Warn("save shell history", "error", err)
		}
	}()

	stop := watchConfig(env, ParseGlobalFlags(c).overrides())
	defer stop()

	app := c.App
	exec := func(ctx context.Context, args []string) error {
		switch reloaded, err := env.applyReload(); {
		case err != nil:
			env.Log.Warn("config reload rejected", "path", env.ConfigPath, "error", err)
		case reloaded:
			env.Log.Info("configuration reloaded", "path", env.ConfigPath)
		}
		return app.RunContext(ctx, append([]string{app.Name}, args...))
	}

	r := repl.New(env.In, env.Out, exec,
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths(app.Commands)...)),
	)
	fmt.Fprintln(env.Out, "kasb shell. Type help for commands, exit to leave.")
	return r.Run(c.Context)
}

// watchConfig reloads the config file on change. The log level applies at
// once; the rest is queued for the next command line.
func watchConfig(env *Env, overrides map[string]any) func() {
	if err := os.MkdirAll(filepath.Dir(env.ConfigPath), 0700); err != nil {
		env.Log.Warn("config watch disabled", "error", err)
		return func() {}
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(env.Log))
	if err != nil {
		env.Log.Warn("config watch disabled", "error", err)
		return func() {}
	}
	if err := w.Watch(env.ConfigPath); err != nil {
		w.Stop()
		env.Log.Warn("config watch disabled", "error", err)
		return func() {}
	}

	w.OnChange(func(path string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			env.Log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		env.queueReload(cfg)
	})
	w.StartAsync()

	return func() {
		if err := w.Stop(); err != nil {
			env.Log.Debug("stop config watcher", "error", err)
		}
	}
}

// commandPaths lists command names, aliases and "parent sub" paths.
func commandPaths(cmds []*cli.Command) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		for _, name := range cmd.Names() {
			paths = append(paths, name)
			for _, sub := range cmd.Subcommands {
				if !sub.Hidden {
					paths = append(paths, name+" "+sub.Name)
				}
			}
		}
	}
	return paths
}
