package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
)

const sampleWorkflowYAML = `
workspace_id: WSP-0000000000000001
name: ingest-and-notify
priority: 2
nodes:
  - name: fetch
    script: http-get
    input_params:
      url:
        type: string
        value: "https://example.com"
        required: true
  - name: notify
    script: slack-post
edges:
  - from: fetch
    to: notify
triggers:
  - name: on-demand
    type: MANUAL
`

func lookupFixture(ids map[string]core.ID) ScriptLookup {
	return func(_ context.Context, name string) (core.ID, error) {
		id, ok := ids[name]
		if !ok {
			return "", assert.AnError
		}
		return id, nil
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("Should parse a workflow document from disk", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "workflow.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sampleWorkflowYAML), 0o644))

		doc, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ingest-and-notify", doc.Name)
		assert.Len(t, doc.Nodes, 2)
		assert.Len(t, doc.Edges, 1)
		assert.Len(t, doc.Triggers, 1)
	})

	t.Run("Should error on a missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("Should reject a document missing a required top-level field", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "workflow.yaml")
		const missingName = `
workspace_id: WSP-0000000000000001
nodes:
  - name: fetch
    script: http-get
`
		require.NoError(t, os.WriteFile(path, []byte(missingName), 0o644))

		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}

func TestBuild(t *testing.T) {
	resolve := lookupFixture(map[string]core.ID{
		"http-get":   core.MustNewID(core.PrefixScript),
		"slack-post": core.MustNewID(core.PrefixScript),
	})

	t.Run("Should build a workflow graph from a parsed document", func(t *testing.T) {
		var doc Document
		require.NoError(t, loadDocString(&doc))

		loaded, err := Build(context.Background(), &doc, resolve)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, loaded.Workflow.Status)
		require.Len(t, loaded.Nodes, 2)
		require.Len(t, loaded.Edges, 1)
		require.Len(t, loaded.Triggers, 1)
		assert.Equal(t, loaded.Nodes[0].ID, loaded.Edges[0].FromNode)
		assert.Equal(t, loaded.Nodes[1].ID, loaded.Edges[0].ToNode)
	})

	t.Run("Should default to a DEFAULT trigger when none are declared", func(t *testing.T) {
		var doc Document
		require.NoError(t, loadDocString(&doc))
		doc.Triggers = nil

		loaded, err := Build(context.Background(), &doc, resolve)
		require.NoError(t, err)
		require.Len(t, loaded.Triggers, 1)
		assert.True(t, loaded.Triggers[0].IsDefault)
	})

	t.Run("Should reject an edge referencing an unknown node", func(t *testing.T) {
		var doc Document
		require.NoError(t, loadDocString(&doc))
		doc.Edges[0].To = "missing"

		_, err := Build(context.Background(), &doc, resolve)
		assert.Error(t, err)
	})

	t.Run("Should reject an unresolvable script name", func(t *testing.T) {
		var doc Document
		require.NoError(t, loadDocString(&doc))

		_, err := Build(context.Background(), &doc, lookupFixture(nil))
		assert.Error(t, err)
	})

	t.Run("Should reject a malformed workspace id", func(t *testing.T) {
		var doc Document
		require.NoError(t, loadDocString(&doc))
		doc.WorkspaceID = "not-an-id"

		_, err := Build(context.Background(), &doc, resolve)
		assert.Error(t, err)
	})
}

func loadDocString(doc *Document) error {
	dir, err := os.MkdirTemp("", "workflow-loader-test")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "workflow.yaml")
	if err := os.WriteFile(path, []byte(sampleWorkflowYAML), 0o644); err != nil {
		return err
	}
	parsed, err := LoadFile(path)
	if err != nil {
		return err
	}
	*doc = *parsed
	return nil
}
