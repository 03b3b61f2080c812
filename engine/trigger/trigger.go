// Package trigger models the Trigger entity and the validator that admits an
// external event or schedule into an Execution.
package trigger

import (
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Type enumerates how a Trigger is fired.
type Type string

const (
	TypeManual    Type = "MANUAL"
	TypeScheduled Type = "SCHEDULED"
	TypeWebhook   Type = "WEBHOOK"
	TypeEvent     Type = "EVENT"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeManual, TypeScheduled, TypeWebhook, TypeEvent:
		return true
	}
	return false
}

// FieldType is the declared type of an input_mapping field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldFloat   FieldType = "float"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
)

func (f FieldType) IsValid() bool {
	switch f {
	case FieldString, FieldInteger, FieldFloat, FieldBoolean, FieldArray, FieldObject:
		return true
	}
	return false
}

// FieldMapping declares one expected field of a trigger's payload.
type FieldMapping struct {
	Type     FieldType
	Required bool
}

// DefaultName is the mandatory, non-deletable trigger every workflow is
// created with.
const DefaultName = "DEFAULT"

const (
	minTriggersPerWorkflow = 1
	maxTriggersPerWorkflow = 10
)

// Trigger converts an external event or schedule into an Execution (TRG-).
type Trigger struct {
	ID           core.ID
	WorkflowID   core.ID
	Name         string
	Type         Type
	Config       map[string]any
	InputMapping map[string]FieldMapping
	Strict       bool
	IsEnabled    bool
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewDefault builds the mandatory DEFAULT webhook trigger created alongside
// a new workflow.
func NewDefault(workflowID core.ID) (*Trigger, error) {
	t, err := New(workflowID, DefaultName, TypeWebhook, nil, nil, false)
	if err != nil {
		return nil, err
	}
	t.IsDefault = true
	return t, nil
}

// New creates a Trigger in its enabled state.
func New(workflowID core.ID, name string, typ Type, config map[string]any, inputMapping map[string]FieldMapping, strict bool) (*Trigger, error) {
	if workflowID.IsZero() {
		return nil, fmt.Errorf("workflow id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("trigger name cannot be empty")
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("invalid trigger type %q", typ)
	}
	for field, mapping := range inputMapping {
		if !mapping.Type.IsValid() {
			return nil, fmt.Errorf("invalid field type %q for %q", mapping.Type, field)
		}
	}
	id, err := core.NewID(core.PrefixTrigger)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	now := time.Now().UTC()
	return &Trigger{
		ID:           id,
		WorkflowID:   workflowID,
		Name:         name,
		Type:         typ,
		Config:       config,
		InputMapping: inputMapping,
		Strict:       strict,
		IsEnabled:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanDelete reports whether this trigger may be removed. The DEFAULT trigger
// is permanent.
func (t *Trigger) CanDelete() bool {
	return !t.IsDefault
}

// Enable flips is_enabled on.
func (t *Trigger) Enable() {
	t.IsEnabled = true
	t.UpdatedAt = time.Now().UTC()
}

// Disable flips is_enabled off.
func (t *Trigger) Disable() {
	t.IsEnabled = false
	t.UpdatedAt = time.Now().UTC()
}

// CountInRange reports whether count is a legal per-workflow trigger count.
func CountInRange(count int) bool {
	return count >= minTriggersPerWorkflow && count <= maxTriggersPerWorkflow
}
