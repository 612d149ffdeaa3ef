package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 1500 * time.Millisecond
	DefaultOTPRequestPath = "/auth/otp/request/"
	DefaultOTPVerifyPath  = "/auth/otp/verify/"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultOutput    = "table"
)

// HomeDir returns ~/.kasb.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".kasb")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), "cli.yaml")
}

// DefaultDotEnvPath returns the .env file read next to the config.
func DefaultDotEnvPath() string {
	return filepath.Join(HomeDir(), ".env")
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		API: APISection{
			BaseURL:        DefaultBaseURL,
			Timeout:        DefaultTimeout,
			MaxAttempts:    DefaultMaxAttempts,
			BaseDelay:      DefaultBaseDelay,
			OTPRequestPath: DefaultOTPRequestPath,
			OTPVerifyPath:  DefaultOTPVerifyPath,
		},
		Session: SessionSection{
			Dir: filepath.Join(HomeDir(), "session"),
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Output: DefaultOutput,
	}
}
