// Package node models the Node entity: a single script invocation within a
// Workflow's DAG.
package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// ParamType enumerates the declared types an input parameter may carry.
type ParamType string

const (
	ParamString   ParamType = "string"
	ParamInteger  ParamType = "integer"
	ParamFloat    ParamType = "float"
	ParamBoolean  ParamType = "boolean"
	ParamArray    ParamType = "array"
	ParamObject   ParamType = "object"
	ParamEmail    ParamType = "email"
	ParamURL      ParamType = "url"
	ParamPassword ParamType = "password"
)

// IsValid reports whether t is one of the declared parameter types.
func (t ParamType) IsValid() bool {
	switch t {
	case ParamString, ParamInteger, ParamFloat, ParamBoolean, ParamArray, ParamObject, ParamEmail, ParamURL, ParamPassword:
		return true
	default:
		return false
	}
}

// Param is one entry of a Node's input_params map: a declared type, a raw
// value (literal or unresolved reference), and optional metadata.
type Param struct {
	Type        ParamType `json:"type"`
	Value       any       `json:"value"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Node is one step of a Workflow's DAG (NOD-). Exactly one of ScriptRef or
// CustomScriptRef is set.
type Node struct {
	ID              core.ID
	WorkflowID      core.ID
	WorkspaceID     core.ID
	Name            string
	ScriptRef       core.ID
	CustomScriptRef core.ID
	InputParams     map[string]Param
	MaxRetries      int
	TimeoutSeconds  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

const (
	defaultMaxRetries     = 3
	defaultTimeoutSeconds = 300
)

// New creates a Node referencing exactly one of scriptRef (global Script) or
// customScriptRef (workspace-scoped CustomScript).
func New(
	workflowID, workspaceID core.ID,
	name string,
	scriptRef, customScriptRef core.ID,
	params map[string]Param,
) (*Node, error) {
	if workflowID.IsZero() {
		return nil, fmt.Errorf("workflow id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("node name cannot be empty")
	}
	if scriptRef.IsZero() == customScriptRef.IsZero() {
		return nil, fmt.Errorf("exactly one of script_ref or custom_script_ref must be set")
	}
	id, err := core.NewID(core.PrefixNode)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if params == nil {
		params = map[string]Param{}
	}
	for name, p := range params {
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("param %q has invalid type %q", name, p.Type)
		}
	}
	now := time.Now().UTC()
	return &Node{
		ID:              id,
		WorkflowID:      workflowID,
		WorkspaceID:     workspaceID,
		Name:            name,
		ScriptRef:       scriptRef,
		CustomScriptRef: customScriptRef,
		InputParams:     params,
		MaxRetries:      defaultMaxRetries,
		TimeoutSeconds:  defaultTimeoutSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// UsesCustomScript reports whether this node calls a workspace-scoped
// CustomScript rather than a global Script.
func (n *Node) UsesCustomScript() bool {
	return !n.CustomScriptRef.IsZero()
}

// SetRetryPolicy overrides the default retry/timeout policy.
func (n *Node) SetRetryPolicy(maxRetries, timeoutSeconds int) error {
	if maxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if timeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be > 0")
	}
	n.MaxRetries = maxRetries
	n.TimeoutSeconds = timeoutSeconds
	n.UpdatedAt = time.Now().UTC()
	return nil
}
