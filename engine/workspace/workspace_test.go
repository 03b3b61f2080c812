package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/plan"
)

func TestNew(t *testing.T) {
	t.Run("Should create a workspace with the given owner, slug and plan", func(t *testing.T) {
		owner, err := core.NewID(core.PrefixUser)
		require.NoError(t, err)
		ws, err := New(owner, "Acme", "acme", plan.Starter)
		require.NoError(t, err)
		assert.Equal(t, owner, ws.OwnerUserID)
		assert.Equal(t, "acme", ws.Slug)
		assert.Equal(t, plan.Starter, ws.Plan)
		assert.True(t, ws.IsActive())
	})

	t.Run("Should reject an empty owner", func(t *testing.T) {
		_, err := New("", "Acme", "acme", plan.Starter)
		assert.Error(t, err)
	})

	t.Run("Should reject an invalid slug", func(t *testing.T) {
		owner, _ := core.NewID(core.PrefixUser)
		_, err := New(owner, "Acme", "Not Valid Slug", plan.Starter)
		assert.Error(t, err)
	})

	t.Run("Should reject an unknown plan", func(t *testing.T) {
		owner, _ := core.NewID(core.PrefixUser)
		_, err := New(owner, "Acme", "acme", plan.Name("bogus"))
		assert.Error(t, err)
	})
}

func TestWorkspaceSuspend(t *testing.T) {
	t.Run("Should stop reporting active once suspended", func(t *testing.T) {
		owner, _ := core.NewID(core.PrefixUser)
		ws, err := New(owner, "Acme", "acme", plan.Starter)
		require.NoError(t, err)
		ws.Suspend()
		assert.False(t, ws.IsActive())
		ws.Unsuspend()
		assert.True(t, ws.IsActive())
	})
}
