package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for display.
func Sanitize(cfg *CLIConfig) *CLIConfig {
	sanitized := *cfg

	if sanitized.Session.EncryptionKey != "" {
		sanitized.Session.EncryptionKey = maskSecret(sanitized.Session.EncryptionKey)
	}
	if sanitized.Session.Passphrase != "" {
		sanitized.Session.Passphrase = "****"
	}

	return &sanitized
}

// maskSecret masks a secret value for safe display.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
