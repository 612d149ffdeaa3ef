package adaptive

import (
	"bytes"
	"testing"
)

var key32 = func() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}()

func TestNew(t *testing.T) {
	c, err := New(key32)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type() != CipherAESGCM && c.Type() != CipherChaCha20 {
		t.Errorf("New() returned unknown cipher type: %s", c.Type())
	}
}

func TestNewWithType_KeySizes(t *testing.T) {
	tests := []struct {
		name    string
		typ     CipherType
		keyLen  int
		wantErr bool
	}{
		{"AES-128", CipherAESGCM, 16, false},
		{"AES-256", CipherAESGCM, 32, false},
		{"AES invalid", CipherAESGCM, 15, true},
		{"ChaCha20", CipherChaCha20, 32, false},
		{"ChaCha20 invalid", CipherChaCha20, 16, true},
		{"unknown", "rot13", 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithType(make([]byte, tt.keyLen), tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Type() != tt.typ {
				t.Errorf("Type() = %s, want %s", c.Type(), tt.typ)
			}
		})
	}
}

func TestCipher_RoundTripAndTamper(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(key32, typ)
			if err != nil {
				t.Fatalf("NewWithType() error = %v", err)
			}

			plaintext := []byte(`{"token":"abc"}`)
			aad := []byte("auth.token")

			sealed, err := c.Encrypt(plaintext, aad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(sealed) != len(plaintext)+c.NonceSize()+c.Overhead() {
				t.Errorf("sealed length = %d", len(sealed))
			}

			got, err := c.Decrypt(sealed, aad)
			if err != nil || !bytes.Equal(got, plaintext) {
				t.Fatalf("Decrypt() = %q, %v", got, err)
			}

			if _, err := c.Decrypt(sealed, []byte("auth.user")); err == nil {
				t.Error("Decrypt() with wrong AAD should fail")
			}

			sealed[len(sealed)-1] ^= 0xFF
			if _, err := c.Decrypt(sealed, aad); err == nil {
				t.Error("Decrypt() of tampered data should fail")
			}

			if _, err := c.Decrypt(make([]byte, c.NonceSize()-1), nil); err != ErrCiphertextTooShort {
				t.Errorf("short input error = %v", err)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}

	k1, err := DeriveKey([]byte("correct horse"), salt)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k2, _ := DeriveKey([]byte("correct horse"), salt)
	if !bytes.Equal(k1, k2) || len(k1) != 32 {
		t.Error("DeriveKey() should be deterministic for the same salt")
	}

	other, _ := NewSalt()
	k3, _ := DeriveKey([]byte("correct horse"), other)
	if bytes.Equal(k1, k3) {
		t.Error("different salts should give different keys")
	}

	if _, err := DeriveKey([]byte("short"), salt); err != ErrPassphraseTooWeak {
		t.Errorf("weak passphrase error = %v", err)
	}
	if _, err := DeriveKey([]byte("correct horse"), []byte("x")); err == nil {
		t.Error("bad salt length should fail")
	}
}

func TestDeriveSubkey(t *testing.T) {
	a, err := DeriveSubkey(key32, "kasb/session", 32)
	if err != nil {
		t.Fatalf("DeriveSubkey() error = %v", err)
	}
	b, _ := DeriveSubkey(key32, "kasb/other", 32)
	if bytes.Equal(a, b) {
		t.Error("different info should give different subkeys")
	}
	if _, err := DeriveSubkey([]byte("short"), "x", 32); err != ErrKeyTooShort {
		t.Errorf("short master key error = %v", err)
	}
}

func TestZeroKey(t *testing.T) {
	k := []byte{1, 2, 3}
	ZeroKey(k)
	if !bytes.Equal(k, []byte{0, 0, 0}) {
		t.Errorf("ZeroKey() left %v", k)
	}
}
