package reference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/node"
)

type fakeNodeOutputs struct {
	results map[core.ID]map[string]any
	calls   int
}

func (f *fakeNodeOutputs) SuccessResult(ctx context.Context, executionID, nodeID core.ID) (map[string]any, bool, error) {
	f.calls++
	r, ok := f.results[nodeID]
	return r, ok, nil
}

type fakeVariables struct{ values map[core.ID]string }

func (f *fakeVariables) Reveal(ctx context.Context, workspaceID, variableID core.ID) (string, error) {
	v, ok := f.values[variableID]
	if !ok {
		return "", core.NewError(nil, core.CodeNotFound, nil)
	}
	return v, nil
}

type fakeCredentials struct{ fields map[core.ID]map[string]any }

func (f *fakeCredentials) AsMap(ctx context.Context, workspaceID, credentialID core.ID) (map[string]any, error) {
	return f.fields[credentialID], nil
}

type fakeDatabases struct{ fields map[core.ID]map[string]any }

func (f *fakeDatabases) AsMap(ctx context.Context, workspaceID, databaseID core.ID) (map[string]any, error) {
	return f.fields[databaseID], nil
}

type fakeFiles struct {
	meta    map[core.ID]map[string]any
	content map[core.ID][]byte
}

func (f *fakeFiles) Metadata(ctx context.Context, workspaceID, fileID core.ID) (map[string]any, error) {
	return f.meta[fileID], nil
}

func (f *fakeFiles) Content(ctx context.Context, workspaceID, fileID core.ID) ([]byte, error) {
	return f.content[fileID], nil
}

func newTestResolver() (*Resolver, *fakeNodeOutputs, *fakeVariables) {
	nodes := &fakeNodeOutputs{results: map[core.ID]map[string]any{}}
	vars := &fakeVariables{values: map[core.ID]string{}}
	creds := &fakeCredentials{fields: map[core.ID]map[string]any{}}
	dbs := &fakeDatabases{fields: map[core.ID]map[string]any{}}
	files := &fakeFiles{meta: map[core.ID]map[string]any{}, content: map[core.ID][]byte{}}
	return NewResolver(nodes, vars, creds, dbs, files), nodes, vars
}

func TestResolverResolve(t *testing.T) {
	ws, _ := core.NewID(core.PrefixWorkspace)
	exc, _ := core.NewID(core.PrefixExecution)

	t.Run("Should resolve a trigger reference coerced to its declared type", func(t *testing.T) {
		r, _, _ := newTestResolver()
		in := Input{WorkspaceID: ws, ExecutionID: exc, TriggerData: map[string]any{"seed": float64(7)}}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"x": {Type: node.ParamInteger, Value: "${trigger:seed}"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), out["x"])
	})

	t.Run("Should resolve a node reference into the upstream result", func(t *testing.T) {
		r, nodes, _ := newTestResolver()
		upstream, _ := core.NewID(core.PrefixNode)
		nodes.results[upstream] = map[string]any{"ok": true}
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"y": {Type: node.ParamBoolean, Value: "${node:" + string(upstream) + ".ok}"},
		})
		require.NoError(t, err)
		assert.Equal(t, true, out["y"])
	})

	t.Run("Should fail with NODE_OUTPUT_MISSING when the upstream has no success output", func(t *testing.T) {
		r, _, _ := newTestResolver()
		upstream, _ := core.NewID(core.PrefixNode)
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		_, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"y": {Type: node.ParamBoolean, Value: "${node:" + string(upstream) + ".ok}"},
		})
		require.Error(t, err)
		code, ok := core.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeReferenceResolution, code)
	})

	t.Run("Should resolve a secret variable reference to its plaintext", func(t *testing.T) {
		r, _, vars := newTestResolver()
		varID, _ := core.NewID(core.PrefixVariable)
		vars.values[varID] = "hunter2"
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"pw": {Type: node.ParamPassword, Value: "${value:" + string(varID) + "}"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hunter2", out["pw"])
	})

	t.Run("Should pass through a static literal unchanged", func(t *testing.T) {
		r, _, _ := newTestResolver()
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"greeting": {Type: node.ParamString, Value: "${static:hello}"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", out["greeting"])
	})

	t.Run("Should treat a plain (non-reference) value as a literal", func(t *testing.T) {
		r, _, _ := newTestResolver()
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"x": {Type: node.ParamInteger, Value: float64(5)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), out["x"])
	})

	t.Run("Should fetch a node referenced by multiple params only once", func(t *testing.T) {
		r, nodes, _ := newTestResolver()
		upstream, _ := core.NewID(core.PrefixNode)
		nodes.results[upstream] = map[string]any{"a": true, "b": float64(3)}
		in := Input{WorkspaceID: ws, ExecutionID: exc}
		out, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"first":  {Type: node.ParamBoolean, Value: "${node:" + string(upstream) + ".a}"},
			"second": {Type: node.ParamInteger, Value: "${node:" + string(upstream) + ".b}"},
		})
		require.NoError(t, err)
		assert.Equal(t, true, out["first"])
		assert.Equal(t, int64(3), out["second"])
		assert.Equal(t, 1, nodes.calls)
	})

	t.Run("Should fail the whole node atomically when one param cannot be resolved", func(t *testing.T) {
		r, _, _ := newTestResolver()
		in := Input{WorkspaceID: ws, ExecutionID: exc, TriggerData: map[string]any{"seed": "not-a-bool"}}
		_, err := r.Resolve(context.Background(), in, map[string]node.Param{
			"ok": {Type: node.ParamBoolean, Value: "${trigger:seed}"},
			"x":  {Type: node.ParamInteger, Value: float64(1)},
		})
		assert.Error(t, err)
	})
}
