// ABOUTME: JSON Schema draft-07 subset validator for tool call arguments
// ABOUTME: Supports type, properties, required, additionalProperties, maxLength, and enum

package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Violation describes a single schema check failure at a JSON path.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validate checks value against the schema and returns every violation found,
// not just the first. A nil or empty schema accepts anything. Arguments that
// are not valid JSON produce a single root violation.
func Validate(schema, value json.RawMessage) []Violation {
	if len(schema) == 0 {
		return nil
	}

	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil {
		return []Violation{{Path: "$", Message: "schema is not a valid JSON object"}}
	}

	var v any
	if len(value) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(value, &v); err != nil {
		return []Violation{{Path: "$", Message: "arguments are not valid JSON"}}
	}

	return validateNode("$", s, v)
}

func validateNode(path string, schema map[string]any, value any) []Violation {
	var violations []Violation

	if t, ok := schema["type"].(string); ok {
		if !typeMatches(t, value) {
			// A type mismatch makes the remaining keyword checks meaningless.
			return append(violations, Violation{Path: path, Message: fmt.Sprintf("expected type %q", t)})
		}
	}

	if enum, ok := schema["enum"].([]any); ok {
		matched := false
		for _, candidate := range enum {
			if reflect.DeepEqual(candidate, value) {
				matched = true
				break
			}
		}
		if !matched {
			violations = append(violations, Violation{Path: path, Message: "value is not one of the allowed enum values"})
		}
	}

	if raw, ok := schema["maxLength"]; ok {
		if s, isStr := value.(string); isStr {
			if limit, ok := asInt(raw); ok && len([]rune(s)) > limit {
				violations = append(violations, Violation{
					Path:    path,
					Message: fmt.Sprintf("string length %d exceeds maxLength %d", len([]rune(s)), limit),
				})
			}
		}
	}

	obj, isObj := value.(map[string]any)
	if !isObj {
		return violations
	}

	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		for _, raw := range required {
			name, ok := raw.(string)
			if !ok {
				continue
			}
			if _, present := obj[name]; !present {
				violations = append(violations, Violation{
					Path:    childPath(path, name),
					Message: "missing required property",
				})
			}
		}
	}

	for name, raw := range props {
		sub, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if child, present := obj[name]; present {
			violations = append(violations, validateNode(childPath(path, name), sub, child)...)
		}
	}

	if allow, ok := schema["additionalProperties"].(bool); ok && !allow {
		for name := range obj {
			if _, known := props[name]; !known {
				violations = append(violations, Violation{
					Path:    childPath(path, name),
					Message: "additional property is not allowed",
				})
			}
		}
	}

	return violations
}

func childPath(parent, name string) string {
	return parent + "." + name
}

func typeMatches(t string, v any) bool {
	switch t {
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "integer":
		f, ok := v.(float64)
		return ok && f == math.Trunc(f)
	case "null":
		return v == nil
	}
	// Unknown type keywords are ignored rather than rejected.
	return true
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
