package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/secretbox"
)

func testBox(t *testing.T) *secretbox.Box {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	box, err := secretbox.New(key)
	require.NoError(t, err)
	return box
}

func TestNew(t *testing.T) {
	ws, _ := core.NewID(core.PrefixWorkspace)

	t.Run("Should create a plaintext variable", func(t *testing.T) {
		v, err := New(ws, "API_BASE", "https://example.com")
		require.NoError(t, err)
		assert.False(t, v.IsSecret)
		assert.Equal(t, "https://example.com", v.Value)
	})

	t.Run("Should reject an empty key", func(t *testing.T) {
		_, err := New(ws, "  ", "value")
		assert.Error(t, err)
	})
}

func TestNewSecretAndReveal(t *testing.T) {
	ws, _ := core.NewID(core.PrefixWorkspace)
	box := testBox(t)

	t.Run("Should store ciphertext distinct from the plaintext", func(t *testing.T) {
		v, err := NewSecret(ws, "API_KEY", box, "hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, "hunter2", v.Value)
	})

	t.Run("Should reveal the original plaintext", func(t *testing.T) {
		v, err := NewSecret(ws, "API_KEY", box, "hunter2")
		require.NoError(t, err)
		plain, err := v.Reveal(box)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", plain)
	})

	t.Run("Should fail to reveal under the wrong box", func(t *testing.T) {
		v, err := NewSecret(ws, "API_KEY", box, "hunter2")
		require.NoError(t, err)
		otherKey := make([]byte, 32)
		for i := range otherKey {
			otherKey[i] = byte(255 - i)
		}
		otherBox, err := secretbox.New(otherKey)
		require.NoError(t, err)
		_, err = v.Reveal(otherBox)
		code, ok := core.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeSecretIntegrity, code)
	})
}

func TestSetValue(t *testing.T) {
	ws, _ := core.NewID(core.PrefixWorkspace)
	box := testBox(t)

	t.Run("Should re-seal a secret variable on update", func(t *testing.T) {
		v, err := NewSecret(ws, "API_KEY", box, "hunter2")
		require.NoError(t, err)
		require.NoError(t, v.SetValue(box, "new-secret"))
		plain, err := v.Reveal(box)
		require.NoError(t, err)
		assert.Equal(t, "new-secret", plain)
	})

	t.Run("Should store plaintext directly for a non-secret variable", func(t *testing.T) {
		v, err := New(ws, "API_BASE", "old")
		require.NoError(t, err)
		require.NoError(t, v.SetValue(nil, "new"))
		assert.Equal(t, "new", v.Value)
	})
}
