// Package secretbox implements authenticated symmetric encryption for
// variable, credential, and database-password fields using a process-wide
// master key (component C2 of the execution core).
package secretbox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/miniflow/miniflow/engine/core"
)

const keyIDLength = 4 // bytes of key fingerprint prepended to every ciphertext

// Box seals and opens secret fields with a single 256-bit master key.
type Box struct {
	keyID []byte
	aead  cipher.AEAD
}

// New builds a Box from a 32-byte master key, typically
// config.FromContext(ctx).Encryption.MasterKey after hex/base64 decoding by
// the caller at process startup.
func New(masterKey []byte) (*Box, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secretbox: master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	aead, err := chacha20poly1305.New(masterKey)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	fingerprint := sha256.Sum256(masterKey)
	return &Box{keyID: fingerprint[:keyIDLength], aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce, returning
// keyID || nonce || ciphertext. The box never logs plaintext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secretbox: generate nonce: %w", err)
	}
	out := make([]byte, 0, keyIDLength+len(nonce)+len(plaintext)+b.aead.Overhead())
	out = append(out, b.keyID...)
	out = append(out, nonce...)
	out = b.aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// SealString is a convenience wrapper for Seal over string plaintext.
func (b *Box) SealString(plaintext string) ([]byte, error) {
	return b.Seal([]byte(plaintext))
}

// Open decrypts a blob previously produced by Seal. It fails with
// core.CodeSecretIntegrity if the key identifier doesn't match this box's
// key or the authentication tag doesn't verify.
func (b *Box) Open(blob []byte) ([]byte, error) {
	nonceSize := b.aead.NonceSize()
	if len(blob) < keyIDLength+nonceSize {
		return nil, core.NewError(fmt.Errorf("ciphertext too short"), core.CodeSecretIntegrity, nil)
	}
	keyID, rest := blob[:keyIDLength], blob[keyIDLength:]
	if string(keyID) != string(b.keyID) {
		return nil, core.NewError(fmt.Errorf("ciphertext was sealed under a different key"), core.CodeSecretIntegrity,
			map[string]any{"expected_key_id": hex.EncodeToString(b.keyID), "actual_key_id": hex.EncodeToString(keyID)})
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, core.NewError(fmt.Errorf("authentication failed"), core.CodeSecretIntegrity, nil)
	}
	return plaintext, nil
}

// OpenString is a convenience wrapper for Open returning a string.
func (b *Box) OpenString(blob []byte) (string, error) {
	pt, err := b.Open(blob)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// KeyID returns the hex-encoded fingerprint of the key this Box was built
// with, for inclusion in rotation audits; it never reveals the key itself.
func (b *Box) KeyID() string {
	return hex.EncodeToString(b.keyID)
}
