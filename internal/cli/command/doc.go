// Package command defines the kasb-cli command tree on urfave/cli/v2.
//
//   - root.go: App, global flags, Before/After hooks
//   - env.go: per-invocation environment (config, logger, storage, API)
//   - auth.go: login, logout, whoami
//   - register.go: the interactive registration wizard
//   - config.go: config show / path / set
//   - version.go, metrics.go: build info and request metrics
//   - shell.go: interactive shell reusing the same command tree
//
// Commands read their dependencies from the Env stored in App.Metadata,
// so a shell runs every line against one open session store.
package command
