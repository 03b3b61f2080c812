package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
)

func TestNew(t *testing.T) {
	t.Run("Should create a node referencing a global script", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		script, _ := core.NewID(core.PrefixScript)
		n, err := New(wf, ws, "fetch-data", script, "", nil)
		require.NoError(t, err)
		assert.False(t, n.UsesCustomScript())
		assert.Equal(t, defaultMaxRetries, n.MaxRetries)
		assert.Equal(t, defaultTimeoutSeconds, n.TimeoutSeconds)
	})

	t.Run("Should create a node referencing a custom script", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		custom, _ := core.NewID(core.PrefixCustom)
		n, err := New(wf, ws, "run-custom", "", custom, nil)
		require.NoError(t, err)
		assert.True(t, n.UsesCustomScript())
	})

	t.Run("Should reject setting both script refs", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		script, _ := core.NewID(core.PrefixScript)
		custom, _ := core.NewID(core.PrefixCustom)
		_, err := New(wf, ws, "n", script, custom, nil)
		assert.Error(t, err)
	})

	t.Run("Should reject setting neither script ref", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		_, err := New(wf, ws, "n", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("Should reject a param with an invalid type", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		script, _ := core.NewID(core.PrefixScript)
		_, err := New(wf, ws, "n", script, "", map[string]Param{"x": {Type: "not-a-type"}})
		assert.Error(t, err)
	})
}

func TestSetRetryPolicy(t *testing.T) {
	t.Run("Should accept a valid policy", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		script, _ := core.NewID(core.PrefixScript)
		n, err := New(wf, ws, "n", script, "", nil)
		require.NoError(t, err)
		require.NoError(t, n.SetRetryPolicy(5, 60))
		assert.Equal(t, 5, n.MaxRetries)
		assert.Equal(t, 60, n.TimeoutSeconds)
	})

	t.Run("Should reject a non-positive timeout", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		ws, _ := core.NewID(core.PrefixWorkspace)
		script, _ := core.NewID(core.PrefixScript)
		n, err := New(wf, ws, "n", script, "", nil)
		require.NoError(t, err)
		assert.Error(t, n.SetRetryPolicy(1, 0))
	})
}
