package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// typeHintSchema maps a ToolSpec type hint to a JSON Schema fragment.
// Unrecognized hints accept any value.
func typeHintSchema(hint string) map[string]interface{} {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "str", "string":
		return map[string]interface{}{"type": "string"}
	case "int", "integer":
		return map[string]interface{}{"type": "integer"}
	case "float", "number":
		return map[string]interface{}{"type": "number"}
	case "bool", "boolean":
		return map[string]interface{}{"type": "boolean"}
	case "list", "array":
		return map[string]interface{}{"type": "array"}
	case "yyyy-mm-dd", "date":
		return map[string]interface{}{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	default:
		return map[string]interface{}{}
	}
}

// ArgsSchema renders the JSON Schema document for a spec's arguments. Every
// argument is optional and undeclared arguments pass through unchecked.
func ArgsSchema(spec ToolSpec) map[string]interface{} {
	props := make(map[string]interface{}, len(spec.Schema))
	for field, hint := range spec.Schema {
		props[field] = typeHintSchema(hint)
	}
	return map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
}

func CompileArgsSchema(spec ToolSpec) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(ArgsSchema(spec))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", spec.Name, err)
	}
	schema, err := jsonschema.CompileString(spec.Name+".args.json", string(doc))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", spec.Name, err)
	}
	return schema, nil
}
