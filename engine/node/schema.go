package node

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/miniflow/miniflow/engine/core"
)

// SchemaValidator checks a Node's input_params against the JSON Schema
// declared by the script it invokes (supplementing the prose-only invariant
// in the original spec: "every name defined, all required entries supplied,
// each value assignable to the declared type").
type SchemaValidator struct {
	compiler *jsonschema.Compiler
}

// NewSchemaValidator builds a SchemaValidator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiler: jsonschema.NewCompiler()}
}

// ValidateParams compiles inputSchema (a script's input_schema, as raw JSON
// Schema bytes) and checks params against it, flattening Param values into
// the plain map a JSON Schema validator expects.
func (v *SchemaValidator) ValidateParams(inputSchema []byte, params map[string]Param) error {
	if len(inputSchema) == 0 {
		return nil
	}
	schema, err := v.compiler.Compile(inputSchema)
	if err != nil {
		return fmt.Errorf("node schema: compile input_schema: %w", err)
	}
	flattened := make(map[string]any, len(params))
	for name, p := range params {
		if p.Value != nil {
			flattened[name] = p.Value
		} else if p.Default != nil {
			flattened[name] = p.Default
		}
	}
	result := schema.Validate(flattened)
	if result.IsValid() {
		return nil
	}
	details := map[string]any{}
	for field, errs := range result.Errors {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		details[field] = messages
	}
	return core.NewError(
		fmt.Errorf("input_params do not conform to the script's input_schema"),
		core.CodeValidation,
		details,
	)
}
