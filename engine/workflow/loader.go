package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	kschema "github.com/kaptinlin/jsonschema"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/edge"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/trigger"
)

// documentSchema is the JSON Schema of Document itself, reflected once from
// its yaml-tagged fields and reused by every LoadFile call to reject a
// structurally malformed workflow file before Build ever touches it.
var documentSchema = sync.OnceValues(func() (*kschema.Schema, error) {
	reflector := &jsonschema.Reflector{FieldNameTag: "yaml", RequiredFromJSONSchemaTags: true}
	raw, err := json.Marshal(reflector.Reflect(&Document{}))
	if err != nil {
		return nil, fmt.Errorf("reflect workflow document schema: %w", err)
	}
	schema, err := kschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile workflow document schema: %w", err)
	}
	return schema, nil
})

// Document is the declarative YAML shape a workflow file is parsed into: a
// single Workflow plus its Nodes, Edges and Triggers, with nodes and edges
// cross-referenced by in-document name rather than by minted ID (the IDs
// don't exist yet when the file is written).
type Document struct {
	WorkspaceID string       `yaml:"workspace_id" jsonschema:"required"`
	Name        string       `yaml:"name" jsonschema:"required"`
	Priority    int          `yaml:"priority"`
	Nodes       []NodeDoc    `yaml:"nodes" jsonschema:"required"`
	Edges       []EdgeDoc    `yaml:"edges"`
	Triggers    []TriggerDoc `yaml:"triggers"`
}

// NodeDoc is one entry of Document.Nodes. Exactly one of Script/CustomScript
// must be set; Script is resolved by name through the Scripts store,
// CustomScript is a raw CUS- id (workspace-scoped scripts have no global
// name to key off).
type NodeDoc struct {
	Name            string              `yaml:"name"`
	Script          string              `yaml:"script,omitempty"`
	CustomScriptRef string              `yaml:"custom_script_ref,omitempty"`
	InputParams     map[string]ParamDoc `yaml:"input_params,omitempty"`
	MaxRetries      int                 `yaml:"max_retries,omitempty"`
	TimeoutSeconds  int                 `yaml:"timeout_seconds,omitempty"`
}

// ParamDoc mirrors node.Param, declared separately so the YAML tags stay out
// of the entity package.
type ParamDoc struct {
	Type        string `yaml:"type"`
	Value       any    `yaml:"value"`
	Required    bool   `yaml:"required,omitempty"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// EdgeDoc connects two NodeDoc entries by their in-document Name.
type EdgeDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TriggerDoc mirrors trigger.Trigger minus the id/workflow backreference.
type TriggerDoc struct {
	Name         string                     `yaml:"name"`
	Type         string                     `yaml:"type"`
	Config       map[string]any             `yaml:"config,omitempty"`
	InputMapping map[string]TriggerFieldDoc `yaml:"input_mapping,omitempty"`
	Strict       bool                       `yaml:"strict,omitempty"`
}

// TriggerFieldDoc mirrors trigger.FieldMapping.
type TriggerFieldDoc struct {
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
}

// Loaded is the fully-built, not-yet-persisted result of parsing a
// Document: a Workflow plus the Nodes/Edges/Triggers that belong to it.
type Loaded struct {
	Workflow *Workflow
	Nodes    []*node.Node
	Edges    []*edge.Edge
	Triggers []*trigger.Trigger
}

// ScriptLookup resolves a script name to its ID. Kept as a plain function
// type rather than an interface so callers can close over a store.Scripts
// (or a test double) without an adapter.
type ScriptLookup func(ctx context.Context, name string) (core.ID, error)

// LoadFile reads path and parses it into a Document.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, err)
	}
	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if result := schema.Validate(generic); !result.IsValid() {
		details := map[string]any{}
		for field, errs := range result.Errors {
			messages := make([]string, 0, len(errs))
			for _, e := range errs {
				messages = append(messages, e.Error())
			}
			details[field] = messages
		}
		return nil, core.NewError(
			fmt.Errorf("workflow file %s does not conform to the document schema", path),
			core.CodeValidation,
			details,
		)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, err)
	}
	return &doc, nil
}

// Build turns a parsed Document into a Loaded graph of domain entities,
// ready for a caller to persist through engine/store. resolveScript is
// consulted for every NodeDoc that names a Script rather than a
// CustomScriptRef.
func Build(ctx context.Context, doc *Document, resolveScript ScriptLookup) (*Loaded, error) {
	workspaceID, err := core.ParseID(core.PrefixWorkspace, doc.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("workflow file: workspace_id: %w", err)
	}
	priority := doc.Priority
	if priority == 0 {
		priority = 1
	}
	wf, err := New(workspaceID, doc.Name, priority)
	if err != nil {
		return nil, fmt.Errorf("workflow file: %w", err)
	}

	nodesByName := make(map[string]*node.Node, len(doc.Nodes))
	nodes := make([]*node.Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		built, err := buildNode(ctx, wf, nd, resolveScript)
		if err != nil {
			return nil, fmt.Errorf("workflow file: node %q: %w", nd.Name, err)
		}
		if _, dup := nodesByName[nd.Name]; dup {
			return nil, fmt.Errorf("workflow file: duplicate node name %q", nd.Name)
		}
		nodesByName[nd.Name] = built
		nodes = append(nodes, built)
	}

	edges := make([]*edge.Edge, 0, len(doc.Edges))
	for _, ed := range doc.Edges {
		from, ok := nodesByName[ed.From]
		if !ok {
			return nil, fmt.Errorf("workflow file: edge references unknown node %q", ed.From)
		}
		to, ok := nodesByName[ed.To]
		if !ok {
			return nil, fmt.Errorf("workflow file: edge references unknown node %q", ed.To)
		}
		built, err := edge.New(wf.ID, from.ID, to.ID)
		if err != nil {
			return nil, fmt.Errorf("workflow file: edge %s->%s: %w", ed.From, ed.To, err)
		}
		edges = append(edges, built)
	}

	triggers := make([]*trigger.Trigger, 0, len(doc.Triggers))
	for _, td := range doc.Triggers {
		built, err := buildTrigger(wf, td)
		if err != nil {
			return nil, fmt.Errorf("workflow file: trigger %q: %w", td.Name, err)
		}
		triggers = append(triggers, built)
	}
	if len(triggers) == 0 {
		def, err := trigger.NewDefault(wf.ID)
		if err != nil {
			return nil, fmt.Errorf("workflow file: default trigger: %w", err)
		}
		triggers = append(triggers, def)
	}

	return &Loaded{Workflow: wf, Nodes: nodes, Edges: edges, Triggers: triggers}, nil
}

func buildNode(ctx context.Context, wf *Workflow, nd NodeDoc, resolveScript ScriptLookup) (*node.Node, error) {
	var scriptRef, customScriptRef core.ID
	switch {
	case nd.Script != "" && nd.CustomScriptRef != "":
		return nil, fmt.Errorf("exactly one of script or custom_script_ref must be set")
	case nd.Script != "":
		id, err := resolveScript(ctx, nd.Script)
		if err != nil {
			return nil, fmt.Errorf("resolve script %q: %w", nd.Script, err)
		}
		scriptRef = id
	case nd.CustomScriptRef != "":
		id, err := core.ParseID(core.PrefixCustom, nd.CustomScriptRef)
		if err != nil {
			return nil, fmt.Errorf("custom_script_ref: %w", err)
		}
		customScriptRef = id
	default:
		return nil, fmt.Errorf("one of script or custom_script_ref is required")
	}

	params := make(map[string]node.Param, len(nd.InputParams))
	for name, p := range nd.InputParams {
		params[name] = node.Param{
			Type:        node.ParamType(p.Type),
			Value:       p.Value,
			Required:    p.Required,
			Default:     p.Default,
			Description: p.Description,
		}
	}

	built, err := node.New(wf.ID, wf.WorkspaceID, nd.Name, scriptRef, customScriptRef, params)
	if err != nil {
		return nil, err
	}
	if nd.MaxRetries > 0 || nd.TimeoutSeconds > 0 {
		maxRetries := nd.MaxRetries
		timeout := nd.TimeoutSeconds
		if maxRetries == 0 {
			maxRetries = built.MaxRetries
		}
		if timeout == 0 {
			timeout = built.TimeoutSeconds
		}
		if err := built.SetRetryPolicy(maxRetries, timeout); err != nil {
			return nil, err
		}
	}
	return built, nil
}

func buildTrigger(wf *Workflow, td TriggerDoc) (*trigger.Trigger, error) {
	mapping := make(map[string]trigger.FieldMapping, len(td.InputMapping))
	for field, f := range td.InputMapping {
		mapping[field] = trigger.FieldMapping{Type: trigger.FieldType(f.Type), Required: f.Required}
	}
	return trigger.New(wf.ID, td.Name, trigger.Type(td.Type), td.Config, mapping, td.Strict)
}
