package trigger

import (
	"context"
	"fmt"

	"dario.cat/mergo"

	"github.com/miniflow/miniflow/engine/core"
)

// WorkflowGate reports whether the owning workflow currently accepts new
// executions. Defined here, satisfied by engine/workflow, to avoid an import
// cycle between the two packages.
type WorkflowGate interface {
	CanRun(ctx context.Context, workflowID core.ID) (bool, error)
}

// Validator implements C7: it admits a trigger payload into an Execution
// only when the trigger is enabled and its owning workflow is ACTIVE.
type Validator struct {
	gate WorkflowGate
}

func NewValidator(gate WorkflowGate) *Validator {
	return &Validator{gate: gate}
}

// Validate checks the trigger's run gate and the caller-supplied payload
// against its input_mapping, returning the payload coerced to declared
// types on success.
func (v *Validator) Validate(ctx context.Context, t *Trigger, payload map[string]any) (map[string]any, error) {
	if t == nil {
		return nil, core.NewError(fmt.Errorf("trigger not found"), core.CodeNotFound, nil)
	}
	if !t.IsEnabled {
		return nil, core.NewError(fmt.Errorf("trigger %s is disabled", t.ID), core.CodeTriggerDisabled, nil)
	}
	canRun, err := v.gate.CanRun(ctx, t.WorkflowID)
	if err != nil {
		return nil, err
	}
	if !canRun {
		return nil, core.NewError(fmt.Errorf("workflow %s is not active", t.WorkflowID), core.CodeTriggerDisabled, nil)
	}
	return v.validatePayload(t, payload)
}

func (v *Validator) validatePayload(t *Trigger, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	if defaults, ok := t.Config["defaults"].(map[string]any); ok {
		if err := mergo.Merge(&payload, defaults); err != nil {
			return nil, core.NewError(err, core.CodeInternal, map[string]any{"reason": "defaults merge"})
		}
	}
	out := map[string]any{}
	for field, mapping := range t.InputMapping {
		raw, present := payload[field]
		if !present {
			if mapping.Required {
				return nil, core.NewError(
					fmt.Errorf("missing required field %q", field),
					core.CodeValidation,
					map[string]any{"field": field},
				)
			}
			continue
		}
		coerced, err := coerce(mapping.Type, raw)
		if err != nil {
			return nil, core.NewError(err, core.CodeValidation, map[string]any{"field": field})
		}
		out[field] = coerced
	}
	if t.Strict {
		for field := range payload {
			if _, declared := t.InputMapping[field]; !declared {
				return nil, core.NewError(
					fmt.Errorf("unknown field %q", field),
					core.CodeValidation,
					map[string]any{"field": field},
				)
			}
		}
	} else {
		for field, val := range payload {
			if _, declared := t.InputMapping[field]; !declared {
				out[field] = val
			}
		}
	}
	return out, nil
}

func coerce(typ FieldType, v any) (any, error) {
	switch typ {
	case FieldString:
		return core.CoerceString(v)
	case FieldFloat, FieldInteger:
		return core.CoerceFloat64(v)
	case FieldBoolean:
		return core.CoerceBool(v)
	case FieldArray:
		if _, ok := v.([]any); !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		return v, nil
	case FieldObject:
		return core.ToStringMap(v)
	default:
		return v, nil
	}
}
