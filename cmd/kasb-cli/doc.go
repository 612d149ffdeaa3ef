// Package main provides the entry point for kasb-cli.
//
// kasb-cli logs in to Kasb, walks through phone registration with a
// one-time code and keeps the session on disk:
//
//	kasb-cli login --phone +998901234567
//	kasb-cli register
//	kasb-cli whoami -o json
//	kasb-cli shell
//
// Configuration lives in ~/.kasb/cli.yaml and can be overridden with
// KASB_* environment variables or a .env file.
package main
