package apikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceGenerate(t *testing.T) {
	s := NewService(DefaultHashParams())

	t.Run("Should generate a key with the expected prefix", func(t *testing.T) {
		key, err := s.Generate()
		require.NoError(t, err)
		assert.Contains(t, key, KeyPrefix)
	})

	t.Run("Should generate distinct keys on each call", func(t *testing.T) {
		a, err := s.Generate()
		require.NoError(t, err)
		b, err := s.Generate()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestServiceHashAndVerify(t *testing.T) {
	s := NewService(DefaultHashParams())

	t.Run("Should verify a key against its own hash", func(t *testing.T) {
		key, err := s.Generate()
		require.NoError(t, err)
		hash, err := s.Hash(key)
		require.NoError(t, err)
		assert.True(t, s.Verify(key, hash))
	})

	t.Run("Should reject a different key against an existing hash", func(t *testing.T) {
		key, err := s.Generate()
		require.NoError(t, err)
		hash, err := s.Hash(key)
		require.NoError(t, err)
		other, err := s.Generate()
		require.NoError(t, err)
		assert.False(t, s.Verify(other, hash))
	})

	t.Run("Should reject a malformed hash", func(t *testing.T) {
		assert.False(t, s.Verify("anything", "not-a-valid-hash"))
	})
}

func TestServiceLookupPrefixAndLastFour(t *testing.T) {
	s := NewService(DefaultHashParams())

	t.Run("Should extract a lookup prefix from a well-formed key", func(t *testing.T) {
		key, err := s.Generate()
		require.NoError(t, err)
		prefix := s.LookupPrefix(key)
		assert.Len(t, prefix, PrefixLookupLength)
	})

	t.Run("Should return empty for a key missing the expected literal prefix", func(t *testing.T) {
		assert.Equal(t, "", s.LookupPrefix("not-a-key"))
	})

	t.Run("Should extract the trailing display characters", func(t *testing.T) {
		key, err := s.Generate()
		require.NoError(t, err)
		last := s.LastFour(key)
		assert.Equal(t, key[len(key)-LastFourLength:], last)
	})
}
