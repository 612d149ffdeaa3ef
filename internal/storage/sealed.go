package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasbhub/kasb-go/pkg/crypto/adaptive"
)

// ErrDecryptionFailed is returned when a sealed value cannot be opened:
// wrong key, wrong passphrase or corrupted data.
var ErrDecryptionFailed = errors.New("storage: decryption failed - wrong key or corrupted data")

// saltKey holds the Argon2 salt for passphrase-derived keys. It is stored
// in clear next to the sealed values.
var saltKey = []byte("sealed.salt")

const subkeyInfo = "kasb/session-store/v1"

// SealConfig configures value encryption. Either Key or Passphrase must be
// set; Passphrase wins when both are.
type SealConfig struct {
	// Key is the raw master key (at least 16 bytes).
	Key []byte

	// Passphrase derives the master key with Argon2id.
	Passphrase []byte

	// Algorithm forces a cipher; empty picks one for the architecture.
	Algorithm adaptive.CipherType
}

// Enabled reports whether any key material is configured.
func (c SealConfig) Enabled() bool {
	return len(c.Key) > 0 || len(c.Passphrase) > 0
}

// SealedKV encrypts every value before handing it to the wrapped KV. The
// key name is bound as additional data, so a value copied under another
// key fails to open.
type SealedKV struct {
	inner  KV
	cipher adaptive.Cipher
}

// NewSealedKV wraps inner. For passphrase configs the salt is read from
// inner, or created and stored on first use.
func NewSealedKV(ctx context.Context, inner KV, cfg SealConfig) (*SealedKV, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage: seal config has no key or passphrase")
	}

	master, err := masterKey(ctx, inner, cfg)
	if err != nil {
		return nil, err
	}

	subkey, err := adaptive.DeriveSubkey(master, subkeyInfo, 32)
	if err != nil {
		return nil, err
	}
	defer adaptive.ZeroKey(subkey)

	var c adaptive.Cipher
	if cfg.Algorithm != "" {
		c, err = adaptive.NewWithType(subkey, cfg.Algorithm)
	} else {
		c, err = adaptive.New(subkey)
	}
	if err != nil {
		return nil, err
	}

	return &SealedKV{inner: inner, cipher: c}, nil
}

func masterKey(ctx context.Context, inner KV, cfg SealConfig) ([]byte, error) {
	if len(cfg.Passphrase) == 0 {
		if len(cfg.Key) < adaptive.MinKeyLength {
			return nil, adaptive.ErrKeyTooShort
		}
		return cfg.Key, nil
	}

	salt, err := inner.Get(ctx, saltKey)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		if salt, err = adaptive.NewSalt(); err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("storage: save salt: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("storage: read salt: %w", err)
	}

	return adaptive.DeriveKey(cfg.Passphrase, salt)
}

// Cipher returns the cipher in use.
func (s *SealedKV) Cipher() adaptive.CipherType {
	return s.cipher.Type()
}

// Get opens the value stored under key.
func (s *SealedKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plain, err := s.cipher.Decrypt(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecryptionFailed, key)
	}
	return plain, nil
}

// Set seals value and stores it under key.
func (s *SealedKV) Set(ctx context.Context, key, value []byte) error {
	sealed, err := s.cipher.Encrypt(value, key)
	if err != nil {
		return fmt.Errorf("storage: seal %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

// Delete removes key.
func (s *SealedKV) Delete(ctx context.Context, key []byte) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped KV.
func (s *SealedKV) Close() error {
	return s.inner.Close()
}
