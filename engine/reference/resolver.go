package reference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/node"
)

// NodeOutputs looks up an upstream node's recorded result_data within the
// same Execution.
type NodeOutputs interface {
	SuccessResult(ctx context.Context, executionID, nodeID core.ID) (map[string]any, bool, error)
}

// Variables reveals a workspace Variable's (possibly secret) value.
type Variables interface {
	Reveal(ctx context.Context, workspaceID, variableID core.ID) (string, error)
}

// Credentials exposes a (possibly decrypted) credential as a plain map.
type Credentials interface {
	AsMap(ctx context.Context, workspaceID, credentialID core.ID) (map[string]any, error)
}

// Databases exposes a connection descriptor as a plain map, password
// decrypted on read.
type Databases interface {
	AsMap(ctx context.Context, workspaceID, databaseID core.ID) (map[string]any, error)
}

// Files exposes file metadata and, for the special "content" field, raw
// bytes of the stored artifact.
type Files interface {
	Metadata(ctx context.Context, workspaceID, fileID core.ID) (map[string]any, error)
	Content(ctx context.Context, workspaceID, fileID core.ID) ([]byte, error)
}

// Resolver implements C3: it resolves a Node's declared params against live
// state, batching lookups per reference type.
type Resolver struct {
	nodes       NodeOutputs
	variables   Variables
	credentials Credentials
	databases   Databases
	files       Files
}

func NewResolver(nodes NodeOutputs, variables Variables, credentials Credentials, databases Databases, files Files) *Resolver {
	return &Resolver{nodes: nodes, variables: variables, credentials: credentials, databases: databases, files: files}
}

// Input is what Resolve needs about the execution context: the workspace
// and execution scoping every lookup, and the trigger payload referenced by
// "${trigger:...}" templates.
type Input struct {
	WorkspaceID core.ID
	ExecutionID core.ID
	TriggerData map[string]any
}

// Resolve resolves every declared param against in into concrete values. It
// is atomic per node: either every param resolves or the call fails with
// REFERENCE_RESOLUTION (wrapping the first concrete error, which may itself
// carry a more specific code: NODE_OUTPUT_MISSING or TYPE_MISMATCH).
//
// References are grouped by (Type, IDOrValue) before any lookup runs, so two
// params pointing at the same node output, variable, credential, database or
// file cost one fetch instead of one per param.
func (r *Resolver) Resolve(ctx context.Context, in Input, params map[string]node.Param) (map[string]any, error) {
	refs := make(map[string]*Reference, len(params))
	for name, p := range params {
		raw := p.Value
		if raw == nil {
			raw = p.Default
		}
		if !IsReference(raw) {
			continue
		}
		ref, err := Parse(raw.(string))
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("resolving %q: %w", name, err),
				core.CodeReferenceResolution,
				map[string]any{"param": name},
			)
		}
		refs[name] = ref
	}

	batch := newFetchBatch(refs)
	batch.fetch(ctx, r, in)

	out := make(map[string]any, len(params))
	for name, p := range params {
		raw := p.Value
		if raw == nil {
			raw = p.Default
		}
		var (
			resolved any
			err      error
		)
		if ref, ok := refs[name]; ok {
			resolved, err = batch.resolve(in, ref)
		} else {
			resolved = raw
		}
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("resolving %q: %w", name, err),
				core.CodeReferenceResolution,
				map[string]any{"param": name},
			)
		}
		value, err := coerceToDeclared(p.Type, resolved)
		if err != nil {
			return nil, core.NewError(
				fmt.Errorf("resolving %q: %w", name, err),
				core.CodeReferenceResolution,
				map[string]any{"param": name},
			)
		}
		out[name] = value
	}
	return out, nil
}

// fetchGroup identifies a unique entity lookup shared by every reference
// that names the same type and id (file references additionally split on
// whether they want raw content vs metadata, since those are different
// calls against the same id).
type fetchGroup struct {
	typ         ReferenceType
	id          string
	wantContent bool
}

// fetchBatch resolves each distinct fetchGroup present in a Resolve call
// exactly once, then serves every reference's Walk from the cached result.
type fetchBatch struct {
	groups  map[fetchGroup][]*Reference
	results map[fetchGroup]any
	errs    map[fetchGroup]error
}

func newFetchBatch(refs map[string]*Reference) *fetchBatch {
	b := &fetchBatch{
		groups:  make(map[fetchGroup][]*Reference),
		results: make(map[fetchGroup]any),
		errs:    make(map[fetchGroup]error),
	}
	for _, ref := range refs {
		g, ok := fetchGroupFor(ref)
		if !ok {
			continue
		}
		b.groups[g] = append(b.groups[g], ref)
	}
	return b
}

func fetchGroupFor(ref *Reference) (fetchGroup, bool) {
	switch ref.Type {
	case TypeNode, TypeValue, TypeCredential, TypeDatabase:
		return fetchGroup{typ: ref.Type, id: ref.IDOrValue}, true
	case TypeFile:
		wantContent := len(ref.Path) == 1 && ref.Path[0].Field == "content"
		return fetchGroup{typ: TypeFile, id: ref.IDOrValue, wantContent: wantContent}, true
	default:
		return fetchGroup{}, false
	}
}

// fetch runs one lookup per group. A failing group's error is cached and
// replayed for every reference in that group rather than retried.
func (b *fetchBatch) fetch(ctx context.Context, r *Resolver, in Input) {
	for g := range b.groups {
		id := core.ID(g.id)
		switch g.typ {
		case TypeNode:
			result, ok, err := r.nodes.SuccessResult(ctx, in.ExecutionID, id)
			if err != nil {
				b.errs[g] = err
				continue
			}
			if !ok {
				b.errs[g] = core.NewError(
					fmt.Errorf("node %s has no SUCCESS output yet", id),
					core.CodeNodeOutputMissing,
					map[string]any{"node_id": string(id)},
				)
				continue
			}
			b.results[g] = result

		case TypeValue:
			plain, err := r.variables.Reveal(ctx, in.WorkspaceID, id)
			if err != nil {
				b.errs[g] = err
				continue
			}
			b.results[g] = plain

		case TypeCredential:
			m, err := r.credentials.AsMap(ctx, in.WorkspaceID, id)
			if err != nil {
				b.errs[g] = err
				continue
			}
			b.results[g] = m

		case TypeDatabase:
			m, err := r.databases.AsMap(ctx, in.WorkspaceID, id)
			if err != nil {
				b.errs[g] = err
				continue
			}
			b.results[g] = m

		case TypeFile:
			if g.wantContent {
				content, err := r.files.Content(ctx, in.WorkspaceID, id)
				if err != nil {
					b.errs[g] = err
					continue
				}
				b.results[g] = content
				continue
			}
			m, err := r.files.Metadata(ctx, in.WorkspaceID, id)
			if err != nil {
				b.errs[g] = err
				continue
			}
			b.results[g] = m
		}
	}
}

// resolve walks ref's path against its group's already-fetched result.
func (b *fetchBatch) resolve(in Input, ref *Reference) (any, error) {
	switch ref.Type {
	case TypeStatic:
		return Walk(parseMaybeJSON(ref.IDOrValue), ref.Path)

	case TypeTrigger:
		return Walk(in.TriggerData, prependField(ref.IDOrValue, ref.Path))

	case TypeValue:
		g, _ := fetchGroupFor(ref)
		if err := b.errs[g]; err != nil {
			return nil, err
		}
		plain := b.results[g].(string)
		if len(ref.Path) == 0 {
			return plain, nil
		}
		return Walk(parseMaybeJSON(plain), ref.Path)

	case TypeFile:
		g, _ := fetchGroupFor(ref)
		if err := b.errs[g]; err != nil {
			return nil, err
		}
		if g.wantContent {
			return b.results[g], nil
		}
		return Walk(b.results[g], ref.Path)

	case TypeNode, TypeCredential, TypeDatabase:
		g, _ := fetchGroupFor(ref)
		if err := b.errs[g]; err != nil {
			return nil, err
		}
		return Walk(b.results[g], ref.Path)

	default:
		return nil, fmt.Errorf("unsupported reference type %q", ref.Type)
	}
}

// prependField treats the part of a trigger/value reference before the
// first "." (already split into IDOrValue by splitPath) as the first path
// field rather than an id, since trigger/value references address the
// trigger_data tree directly rather than naming an entity.
func prependField(idOrValue string, path []PathStep) []PathStep {
	if idOrValue == "" {
		return path
	}
	return append([]PathStep{{Field: idOrValue}}, path...)
}

func parseMaybeJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		return decoded
	}
	return s
}

func coerceToDeclared(typ node.ParamType, v any) (any, error) {
	switch typ {
	case node.ParamString, node.ParamEmail, node.ParamURL, node.ParamPassword:
		return core.CoerceString(v)
	case node.ParamInteger:
		f, err := core.CoerceFloat64(v)
		if err != nil {
			return nil, err
		}
		return int64(f), nil
	case node.ParamFloat:
		return core.CoerceFloat64(v)
	case node.ParamBoolean:
		return core.CoerceBool(v)
	case node.ParamArray:
		if s, ok := v.(string); ok {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return nil, fmt.Errorf("%w: %q is not a JSON array", core.ErrTypeMismatch, s)
			}
			return arr, nil
		}
		if arr, ok := v.([]any); ok {
			return arr, nil
		}
		return nil, fmt.Errorf("%w: cannot coerce %T to array", core.ErrTypeMismatch, v)
	case node.ParamObject:
		return core.ToStringMap(v)
	default:
		return v, nil
	}
}
