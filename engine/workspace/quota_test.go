package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/plan"
)

type fakeCounters struct {
	value int64
	err   error
}

func (f fakeCounters) Counter(_ context.Context, _ core.ID, _ Resource) (int64, error) {
	return f.value, f.err
}

func newWorkspace(t *testing.T, planName plan.Name) *Workspace {
	t.Helper()
	owner, err := core.NewID(core.PrefixUser)
	require.NoError(t, err)
	ws, err := New(owner, "Acme", "acme", planName)
	require.NoError(t, err)
	return ws
}

func TestAccountantCheckCreate(t *testing.T) {
	t.Run("Should allow a create below the plan limit", func(t *testing.T) {
		ws := newWorkspace(t, plan.Freemium)
		a := NewAccountant(fakeCounters{value: 1})
		err := a.CheckCreate(context.Background(), ws, ResourceWorkflow, 1)
		assert.NoError(t, err)
	})

	t.Run("Should fail with QUOTA_EXCEEDED once the limit would be crossed", func(t *testing.T) {
		ws := newWorkspace(t, plan.Freemium)
		a := NewAccountant(fakeCounters{value: 3})
		err := a.CheckCreate(context.Background(), ws, ResourceWorkflow, 1)
		require.Error(t, err)
		code, ok := core.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeQuotaExceeded, code)
	})

	t.Run("Should never reject an unlimited resource on Enterprise", func(t *testing.T) {
		ws := newWorkspace(t, plan.Enterprise)
		a := NewAccountant(fakeCounters{value: 1_000_000})
		err := a.CheckCreate(context.Background(), ws, ResourceWorkflow, 1)
		assert.NoError(t, err)
	})
}

func TestAccountantCheckFeature(t *testing.T) {
	t.Run("Should deny a feature the plan does not grant", func(t *testing.T) {
		ws := newWorkspace(t, plan.Freemium)
		a := NewAccountant(fakeCounters{})
		err := a.CheckFeature(ws, plan.FeatureCustomScripts)
		require.Error(t, err)
		code, ok := core.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeForbidden, code)
	})

	t.Run("Should allow a feature the plan grants", func(t *testing.T) {
		ws := newWorkspace(t, plan.Pro)
		a := NewAccountant(fakeCounters{})
		assert.NoError(t, a.CheckFeature(ws, plan.FeatureCustomScripts))
	})
}
