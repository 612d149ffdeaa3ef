package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/kasbhub/kasb-go/internal/cli/config"
	"github.com/kasbhub/kasb-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration (secrets masked)",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:        "set",
				Usage:       "Set a key in the config file",
				ArgsUsage:   "KEY VALUE",
				Description: "Keys:\n  " + strings.Join(config.Keys, "\n  "),
				Action:      configSet,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	tree, err := configTree(config.Sanitize(env.Config))
	if err != nil {
		return err
	}
	if env.Format == output.FormatTable {
		flat := make(map[string]any)
		flatten("", tree, flat)
		return env.Print(flat)
	}
	return env.Print(tree)
}

// configTree converts the config to nested maps keyed like the file.
func configTree(cfg *config.CLIConfig) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	tree := make(map[string]any)
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return tree, nil
}

// flatten turns nested maps into dotted keys.
func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func configPath(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, env.ConfigPath)
	return nil
}

func configSet(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	if _, err := config.Set(env.ConfigPath, key, value); err != nil {
		return err
	}
	if strings.HasPrefix(key, "session.") && key != "session.dir" {
		value = "****"
	}
	fmt.Fprintf(env.Out, "%s = %s\n", key, value)
	return nil
}
