package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

// minKeyBytes matches the smallest key the session cipher accepts.
const minKeyBytes = 16

// Validate checks the configuration and returns the first problem found.
func (c *CLIConfig) Validate() error {
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.Session.validate(); err != nil {
		return err
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	return validateOutput(c.Output)
}

func (a *APISection) validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if a.MaxAttempts < 1 {
		return errors.New("api.max_attempts must be at least 1")
	}
	if a.BaseDelay < 0 {
		return errors.New("api.base_delay must not be negative")
	}
	if a.RateLimit < 0 {
		return errors.New("api.rate_limit must not be negative")
	}
	if a.OTPRequestPath == "" || a.OTPVerifyPath == "" {
		return errors.New("api.otp_request_path and api.otp_verify_path are required")
	}
	return nil
}

func (s *SessionSection) validate() error {
	if s.Dir == "" {
		return errors.New("session.dir is required")
	}
	if s.EncryptionKey != "" && s.Passphrase != "" {
		return errors.New("set session.encryption_key or session.passphrase, not both")
	}
	if s.EncryptionKey != "" {
		if _, err := s.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key decodes EncryptionKey. It returns nil when no key is set.
func (s *SessionSection) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session.encryption_key must be hex: %w", err)
	}
	if len(key) < minKeyBytes {
		return nil, fmt.Errorf("session.encryption_key must be at least %d bytes", minKeyBytes)
	}
	return key, nil
}

func (l *LogSection) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", l.Format)
	}
	return nil
}

func validateOutput(output string) error {
	switch output {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("output must be table, json or yaml, got %q", output)
}
