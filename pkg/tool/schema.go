package tool

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ParameterSpec describes a single accepted parameter. Type and Enum are
// descriptive metadata surfaced to callers through introspection; only the
// Required flag is enforced during dispatch.
type ParameterSpec struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// Schema is an ordered list of parameter specs. Order is the declaration
// order and is used for documentation display and for picking which missing
// required parameter gets reported first.
type Schema []ParameterSpec

var validParameterTypes = map[string]bool{
	"string": true, "integer": true, "number": true,
	"array": true, "object": true, "boolean": true,
}

// Check validates the schema definition itself. Called at registration time;
// a failure here is fatal to startup, like a duplicate name.
func (s Schema) Check() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter name: %s", p.Name)
		}
		seen[p.Name] = true
		if !validParameterTypes[p.Type] {
			return fmt.Errorf("invalid parameter type %q for %s", p.Type, p.Name)
		}
		if p.Required && p.Default != nil {
			return fmt.Errorf("required parameter %s cannot declare a default", p.Name)
		}
	}
	return nil
}

// Validate checks that every required parameter is present. Absent optional
// parameters are not filled in here; default substitution is each tool's own
// business during execution. Type and enum constraints are deliberately not
// enforced on this path.
func (s Schema) Validate(params map[string]interface{}) error {
	for _, p := range s {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			return &ValidationError{Parameter: p.Name}
		}
	}
	return nil
}

// Doc renders the schema as the parameter-name keyed object exposed by the
// introspection endpoints.
func (s Schema) Doc() map[string]interface{} {
	doc := make(map[string]interface{}, len(s))
	for _, p := range s {
		entry := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
			"required":    p.Required,
		}
		if p.Default != nil {
			entry["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			entry["enum"] = p.Enum
		}
		doc[p.Name] = entry
	}
	return doc
}

// JSONSchemaDoc renders the schema as a JSON Schema document. Unknown keys
// stay allowed so the document describes the lenient dispatch contract.
func (s Schema) JSONSchemaDoc() map[string]interface{} {
	properties := make(map[string]interface{}, len(s))
	required := []string{}

	for _, p := range s {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

// Compile builds the gojsonschema form used for strict validation.
func (s Schema) Compile() (*gojsonschema.Schema, error) {
	loader := gojsonschema.NewGoLoader(s.JSONSchemaDoc())
	return gojsonschema.NewSchema(loader)
}
