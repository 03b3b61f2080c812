// Package reference implements the C3 reference grammar: detection and
// parsing of "${type:id_or_value.path}" parameter templates, and the
// batched, type-grouped resolver that turns them into concrete values.
package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/miniflow/miniflow/engine/core"
)

// Type is the reference kind named after the colon.
type Type string

const (
	TypeStatic     Type = "static"
	TypeTrigger    Type = "trigger"
	TypeNode       Type = "node"
	TypeValue      Type = "value"
	TypeCredential Type = "credential"
	TypeDatabase   Type = "database"
	TypeFile       Type = "file"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeStatic, TypeTrigger, TypeNode, TypeValue, TypeCredential, TypeDatabase, TypeFile:
		return true
	}
	return false
}

// PathStep is one hop of a dotted/indexed path: either a field name or an
// array index.
type PathStep struct {
	Field string
	Index int
	IsIndex bool
}

// Reference is a parsed "${type:id_or_value.path}" template.
type Reference struct {
	Type     Type
	IDOrValue string
	Path     []PathStep
}

// IsReference reports whether v is a string reference template: begins with
// "${", ends with "}", and contains a ":" inside.
func IsReference(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return false
	}
	inner := s[2 : len(s)-1]
	return strings.Contains(inner, ":")
}

// Parse parses a reference template string. Callers should check
// IsReference first; Parse returns an error for anything else.
func Parse(s string) (*Reference, error) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("not a reference: %q", s)
	}
	inner := s[2 : len(s)-1]
	colon := strings.Index(inner, ":")
	if colon < 0 {
		return nil, fmt.Errorf("not a reference: %q", s)
	}
	typ := Type(inner[:colon])
	if !typ.IsValid() {
		return nil, fmt.Errorf("invalid reference type %q in %q", typ, s)
	}
	rest := inner[colon+1:]
	idOrValue, path, err := splitPath(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", s, err)
	}
	return &Reference{Type: typ, IDOrValue: idOrValue, Path: path}, nil
}

// splitPath separates "id_or_value" from its optional ".path" chain,
// parsing "[n]" index steps.
func splitPath(rest string) (string, []PathStep, error) {
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return rest, nil, nil
	}
	idOrValue := rest[:dot]
	pathStr := rest[dot+1:]
	var steps []PathStep
	for _, segment := range strings.Split(pathStr, ".") {
		for _, part := range splitIndexSteps(segment) {
			if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") {
				idx, err := strconv.Atoi(part[1 : len(part)-1])
				if err != nil {
					return "", nil, fmt.Errorf("invalid array index %q", part)
				}
				steps = append(steps, PathStep{Index: idx, IsIndex: true})
				continue
			}
			if part == "" {
				return "", nil, fmt.Errorf("empty path segment")
			}
			steps = append(steps, PathStep{Field: part})
		}
	}
	return idOrValue, steps, nil
}

// splitIndexSteps turns "results[0]" into ["results", "[0]"].
func splitIndexSteps(segment string) []string {
	var parts []string
	cur := strings.Builder{}
	for _, r := range segment {
		if r == '[' {
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			cur.WriteRune(r)
			continue
		}
		cur.WriteRune(r)
		if r == ']' {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// Walk steps into a decoded JSON value along path, returning TYPE_MISMATCH
// (via core.ErrTypeMismatch) when a step doesn't apply.
func Walk(v any, path []PathStep) (any, error) {
	cur := v
	for _, step := range path {
		if step.IsIndex {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected array for index step, got %T", core.ErrTypeMismatch, cur)
			}
			if step.Index < 0 || step.Index >= len(arr) {
				return nil, fmt.Errorf("array index %d out of range", step.Index)
			}
			cur = arr[step.Index]
			continue
		}
		m, err := core.ToStringMap(cur)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot step into %T with field %q", core.ErrTypeMismatch, cur, step.Field)
		}
		next, ok := m[step.Field]
		if !ok {
			return nil, fmt.Errorf("field %q not found", step.Field)
		}
		cur = next
	}
	return cur, nil
}
