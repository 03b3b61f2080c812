// Package store declares the repository interfaces every engine/* package
// persists through, kept free of any concrete driver so engine/infra/postgres
// (and tests) can each provide their own implementation.
package store

import (
	"context"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/credential"
	"github.com/miniflow/miniflow/engine/edge"
	"github.com/miniflow/miniflow/engine/file"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/script"
	"github.com/miniflow/miniflow/engine/trigger"
	"github.com/miniflow/miniflow/engine/variable"
	"github.com/miniflow/miniflow/engine/workflow"
	"github.com/miniflow/miniflow/engine/workspace"
)

// Workspaces persists the Workspace aggregate.
type Workspaces interface {
	Create(ctx context.Context, ws *workspace.Workspace) error
	Get(ctx context.Context, id core.ID) (*workspace.Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*workspace.Workspace, error)
	Update(ctx context.Context, ws *workspace.Workspace) error
}

// Workflows persists the Workflow aggregate.
type Workflows interface {
	Create(ctx context.Context, wf *workflow.Workflow) error
	Get(ctx context.Context, id core.ID) (*workflow.Workflow, error)
	ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*workflow.Workflow, error)
	Update(ctx context.Context, wf *workflow.Workflow) error
	CountByWorkspace(ctx context.Context, workspaceID core.ID) (int, error)
}

// Nodes persists the Node aggregate.
type Nodes interface {
	Create(ctx context.Context, n *node.Node) error
	Get(ctx context.Context, id core.ID) (*node.Node, error)
	ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*node.Node, error)
	Update(ctx context.Context, n *node.Node) error
	Delete(ctx context.Context, id core.ID) error
}

// Edges persists the Edge aggregate.
type Edges interface {
	Create(ctx context.Context, e *edge.Edge) error
	ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*edge.Edge, error)
	Delete(ctx context.Context, id core.ID) error
}

// Triggers persists the Trigger aggregate.
type Triggers interface {
	Create(ctx context.Context, t *trigger.Trigger) error
	Get(ctx context.Context, id core.ID) (*trigger.Trigger, error)
	ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*trigger.Trigger, error)
	Update(ctx context.Context, t *trigger.Trigger) error
	CountByWorkflow(ctx context.Context, workflowID core.ID) (int, error)
}

// Scripts persists the global Script catalog.
type Scripts interface {
	Get(ctx context.Context, id core.ID) (*script.Script, error)
	GetByName(ctx context.Context, name string) (*script.Script, error)
}

// CustomScripts persists the workspace-scoped CustomScript catalog.
type CustomScripts interface {
	Create(ctx context.Context, cs *script.CustomScript) error
	Get(ctx context.Context, id core.ID) (*script.CustomScript, error)
	ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*script.CustomScript, error)
	Update(ctx context.Context, cs *script.CustomScript) error
	CountByWorkspace(ctx context.Context, workspaceID core.ID) (int, error)
}

// Variables persists the Variable aggregate.
type Variables interface {
	Create(ctx context.Context, v *variable.Variable) error
	Get(ctx context.Context, id core.ID) (*variable.Variable, error)
	GetByKey(ctx context.Context, workspaceID core.ID, key string) (*variable.Variable, error)
	Update(ctx context.Context, v *variable.Variable) error
	Delete(ctx context.Context, id core.ID) error
}

// Credentials persists the Credential aggregate.
type Credentials interface {
	Create(ctx context.Context, c *credential.Credential) error
	Get(ctx context.Context, id core.ID) (*credential.Credential, error)
	Delete(ctx context.Context, id core.ID) error
}

// Databases persists the Database aggregate.
type Databases interface {
	Create(ctx context.Context, d *credential.Database) error
	Get(ctx context.Context, id core.ID) (*credential.Database, error)
	Delete(ctx context.Context, id core.ID) error
}

// Files persists the File aggregate.
type Files interface {
	Create(ctx context.Context, f *file.File) error
	Get(ctx context.Context, id core.ID) (*file.File, error)
	ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*file.File, error)
	Delete(ctx context.Context, id core.ID) error
	SumSizeByWorkspace(ctx context.Context, workspaceID core.ID) (int64, error)
}

// APIKeys persists the APIKey aggregate.
type APIKeys interface {
	Create(ctx context.Context, k *apikey.APIKey) error
	Get(ctx context.Context, id core.ID) (*apikey.APIKey, error)
	FindByLookupPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error)
	RecordUsage(ctx context.Context, id core.ID) error
	Update(ctx context.Context, k *apikey.APIKey) error
}
