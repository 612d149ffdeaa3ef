package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/kasbhub/kasb-go/internal/infra/buildinfo"
)

// AppName is the binary name.
const AppName = "kasb-cli"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     AppName,
		Usage:    "Kasb account command-line client",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			LoginCommand(),
			RegisterCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			ConfigCommand(),
			MetricsCommand(),
			VersionCommand(),
			ShellCommand(),
		},
		Before:         setup,
		After:          teardown,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.kasb/cli.yaml)",
			EnvVars: []string{"KASB_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend base URL (e.g., https://api.kasb.uz)",
			EnvVars: []string{"KASB_SERVER"},
		},
		&cli.StringFlag{
			Name:  "session-dir",
			Usage: "Directory of the stored session",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log debug output to stderr",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Config     string
	Server     string
	SessionDir string
	Output     string
	Wide       bool
	Verbose    bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:     c.String("config"),
		Server:     c.String("server"),
		SessionDir: c.String("session-dir"),
		Output:     c.String("output"),
		Wide:       c.Bool("wide"),
		Verbose:    c.Bool("verbose"),
	}
}

// overrides maps set flags to configuration keys; they win over file and
// environment values.
func (f *GlobalFlags) overrides() map[string]any {
	m := make(map[string]any)
	if f.Server != "" {
		m["api.base_url"] = f.Server
	}
	if f.SessionDir != "" {
		m["session.dir"] = f.SessionDir
	}
	if f.Output != "" {
		m["output"] = f.Output
	}
	if f.Verbose {
		m["log.level"] = "debug"
	}
	return m
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
