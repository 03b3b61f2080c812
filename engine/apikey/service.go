package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashParams are the Argon2id tuning parameters.
type HashParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultHashParams returns conservative production defaults.
func DefaultHashParams() HashParams {
	return HashParams{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Service generates, hashes, and verifies API keys without ever persisting
// the plaintext value.
type Service struct {
	params HashParams
}

func NewService(params HashParams) *Service {
	return &Service{params: params}
}

// Generate produces a fresh plaintext key of the form "mfk_<hex>".
func (s *Service) Generate() (string, error) {
	raw := make([]byte, KeyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(raw), nil
}

// Hash computes a salted Argon2id digest, formatted as "<hex salt>:<hex hash>".
func (s *Service) Hash(key string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(key), salt, s.params.Time, s.params.Memory, s.params.Threads, s.params.KeyLen)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(hash), nil
}

// Verify checks key against a hash produced by Hash, in constant time.
func (s *Service) Verify(key, hash string) bool {
	parts := strings.Split(hash, ":")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(key), salt, s.params.Time, s.params.Memory, s.params.Threads, s.params.KeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1
}

// LookupPrefix extracts the prefix characters used for the database lookup
// index, or "" if key doesn't carry the expected literal prefix.
func (s *Service) LookupPrefix(key string) string {
	if !strings.HasPrefix(key, KeyPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(key, KeyPrefix)
	if len(rest) < PrefixLookupLength {
		return rest
	}
	return rest[:PrefixLookupLength]
}

// LastFour extracts the trailing display characters of key.
func (s *Service) LastFour(key string) string {
	if len(key) < LastFourLength {
		return key
	}
	return key[len(key)-LastFourLength:]
}

// dummyHash is verified on every lookup-miss path so failure timing is
// indistinguishable from a real mismatch.
const dummyHash = "00000000000000000000000000000000:0000000000000000000000000000000000000000000000000000000000000000"

// VerifyDummy performs a constant-time-shaped comparison against a fixed
// hash, used to keep lookup-miss and hash-mismatch code paths equal-time.
func (s *Service) VerifyDummy(key string) {
	s.Verify(key, dummyHash)
}
