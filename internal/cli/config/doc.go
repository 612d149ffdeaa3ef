// Package config provides the kasb-cli configuration (~/.kasb/cli.yaml).
//
// Values are layered by confloader: defaults, the YAML file, .env, KASB_*
// environment variables, then command-line flags. Save writes the file
// back with owner-only permissions.
package config
