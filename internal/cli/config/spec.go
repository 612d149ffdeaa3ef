package config

import "time"

// CLIConfig is the configuration for kasb-cli.
type CLIConfig struct {
	API     APISection     `koanf:"api" yaml:"api"`
	Session SessionSection `koanf:"session" yaml:"session"`
	Log     LogSection     `koanf:"log" yaml:"log"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`
}

// APISection configures the backend and the request client.
type APISection struct {
	BaseURL     string        `koanf:"base_url" yaml:"base_url"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxAttempts int           `koanf:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay" yaml:"base_delay"`

	// RateLimit caps outgoing requests per second; 0 disables it.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`

	OTPRequestPath string `koanf:"otp_request_path" yaml:"otp_request_path"`
	OTPVerifyPath  string `koanf:"otp_verify_path" yaml:"otp_verify_path"`

	// CAFile is a PEM file or directory trusted in addition to the
	// system roots.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`

	// TelegramCheckPath enables the telegram username check when set.
	TelegramCheckPath string `koanf:"telegram_check_path" yaml:"telegram_check_path,omitempty"`
}

// SessionSection configures where the session is persisted.
type SessionSection struct {
	Dir string `koanf:"dir" yaml:"dir"`

	// EncryptionKey (hex) or Passphrase seal the stored session.
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key,omitempty"`
	Passphrase    string `koanf:"passphrase" yaml:"passphrase,omitempty"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Keys lists the settable configuration keys.
var Keys = []string{
	"api.base_url",
	"api.timeout",
	"api.max_attempts",
	"api.base_delay",
	"api.rate_limit",
	"api.ca_file",
	"api.otp_request_path",
	"api.otp_verify_path",
	"api.telegram_check_path",
	"session.dir",
	"session.encryption_key",
	"session.passphrase",
	"log.level",
	"log.format",
	"output",
}

// IsKey reports whether key is a known configuration key.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
