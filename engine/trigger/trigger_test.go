package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
)

func TestNewDefault(t *testing.T) {
	t.Run("Should create an enabled, non-deletable DEFAULT webhook trigger", func(t *testing.T) {
		wf, _ := core.NewID(core.PrefixWorkflow)
		tr, err := NewDefault(wf)
		require.NoError(t, err)
		assert.Equal(t, DefaultName, tr.Name)
		assert.Equal(t, TypeWebhook, tr.Type)
		assert.True(t, tr.IsEnabled)
		assert.True(t, tr.IsDefault)
		assert.False(t, tr.CanDelete())
	})
}

func TestNew(t *testing.T) {
	wf, _ := core.NewID(core.PrefixWorkflow)

	t.Run("Should reject an invalid type", func(t *testing.T) {
		_, err := New(wf, "custom", "BOGUS", nil, nil, false)
		assert.Error(t, err)
	})

	t.Run("Should reject an invalid input mapping field type", func(t *testing.T) {
		_, err := New(wf, "custom", TypeManual, nil, map[string]FieldMapping{"x": {Type: "bogus"}}, false)
		assert.Error(t, err)
	})

	t.Run("Should be enabled and deletable by default", func(t *testing.T) {
		tr, err := New(wf, "custom", TypeManual, nil, nil, false)
		require.NoError(t, err)
		assert.True(t, tr.IsEnabled)
		assert.True(t, tr.CanDelete())
	})

	t.Run("Should flip is_enabled via Enable/Disable", func(t *testing.T) {
		tr, err := New(wf, "custom", TypeManual, nil, nil, false)
		require.NoError(t, err)
		tr.Disable()
		assert.False(t, tr.IsEnabled)
		tr.Enable()
		assert.True(t, tr.IsEnabled)
	})
}

func TestCountInRange(t *testing.T) {
	assert.False(t, CountInRange(0))
	assert.True(t, CountInRange(1))
	assert.True(t, CountInRange(10))
	assert.False(t, CountInRange(11))
}
