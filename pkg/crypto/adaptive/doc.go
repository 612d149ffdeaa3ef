// Package adaptive provides authenticated encryption for data kasb keeps
// on disk.
//
// Supported Algorithms:
//
//   - AES-256-GCM: preferred where the Go runtime has hardware AES
//   - ChaCha20-Poly1305: fallback for other architectures
//
// Keys come either from configuration (raw, hex encoded) or from a
// passphrase through Argon2id; HKDF separates subkeys per purpose.
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
