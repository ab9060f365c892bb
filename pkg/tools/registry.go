package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dotsetgreg/wanderbot/pkg/logger"
	"github.com/dotsetgreg/wanderbot/pkg/redact"
)

// ToolRegistry routes calls for the declared specs to registered backends.
type ToolRegistry struct {
	specs      []ToolSpec
	byName     map[string]ToolSpec
	validators map[string]*jsonschema.Schema
	tools      map[string]Tool
	mu         sync.RWMutex
}

// NewToolRegistry declares specs. Specs whose schema cannot be compiled are
// still routable but their arguments go unchecked.
func NewToolRegistry(specs []ToolSpec) *ToolRegistry {
	r := &ToolRegistry{
		byName:     make(map[string]ToolSpec, len(specs)),
		validators: make(map[string]*jsonschema.Schema, len(specs)),
		tools:      make(map[string]Tool),
	}
	for _, spec := range specs {
		if _, dup := r.byName[spec.Name]; dup {
			continue
		}
		r.specs = append(r.specs, spec)
		r.byName[spec.Name] = spec

		schema, err := CompileArgsSchema(spec)
		if err != nil {
			logger.WarnCF("tool", "Tool schema not compiled; arguments will not be validated",
				map[string]interface{}{
					"tool":  spec.Name,
					"error": err.Error(),
				})
			continue
		}
		r.validators[spec.Name] = schema
	}
	return r
}

func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Specs returns the declared specs in declaration order.
func (r *ToolRegistry) Specs() []ToolSpec {
	out := make([]ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistry) Call(ctx context.Context, name string, args map[string]interface{}) string {
	if args == nil {
		args = map[string]interface{}{}
	}
	sanitizedArgs := sanitizeToolArgs(args)
	logger.InfoCF("tool", "Tool execution started",
		map[string]interface{}{
			"tool": name,
			"args": sanitizedArgs,
		})

	if _, declared := r.byName[name]; !declared {
		logger.ErrorCF("tool", "Tool not found",
			map[string]interface{}{
				"tool": name,
			})
		return fmt.Sprintf("Tool '%s' not found.", name)
	}

	tool, ok := r.Get(name)
	if !ok {
		logger.WarnCF("tool", "Tool has no backend",
			map[string]interface{}{
				"tool": name,
			})
		return fmt.Sprintf("Tool '%s' executed with args %s, but no mock implemented.", name, formatArgs(args))
	}

	if err := r.validate(name, args); err != nil {
		logger.WarnCF("tool", "Tool arguments rejected",
			map[string]interface{}{
				"tool":  name,
				"error": err.Error(),
			})
		return fmt.Sprintf("Tool '%s' rejected args: %s", name, err.Error())
	}

	start := time.Now()
	result := tool.Execute(ctx, args)
	logger.InfoCF("tool", "Tool execution completed",
		map[string]interface{}{
			"tool":          name,
			"duration_ms":   time.Since(start).Milliseconds(),
			"result_length": len(result),
		})
	return result
}

func (r *ToolRegistry) validate(name string, args map[string]interface{}) error {
	schema, ok := r.validators[name]
	if !ok {
		return nil
	}
	doc, err := toJSONValue(args)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%s", flattenValidationError(verr))
		}
		return err
	}
	return nil
}

func flattenValidationError(verr *jsonschema.ValidationError) string {
	var msgs []string
	collectLeafErrors(verr, &msgs)
	if len(msgs) == 0 {
		return verr.Message
	}
	return strings.Join(msgs, "; ")
}

func collectLeafErrors(verr *jsonschema.ValidationError, out *[]string) {
	if len(verr.Causes) == 0 {
		loc := verr.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+verr.Message)
		return
	}
	for _, cause := range verr.Causes {
		collectLeafErrors(cause, out)
	}
}

// toJSONValue normalizes Go values into the shapes encoding/json produces,
// which is what the schema validator walks.
func toJSONValue(v interface{}) (interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	return out, nil
}

func formatArgs(args map[string]interface{}) string {
	if args == nil {
		args = map[string]interface{}{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return fmt.Sprintf("%v", args)
	}
	return strings.TrimSpace(buf.String())
}

var sensitiveArgKeyFragments = []string{
	"api_key",
	"apikey",
	"authorization",
	"password",
	"secret",
	"token",
}

func sanitizeToolArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(args))
	for key, value := range args {
		sanitized[key] = sanitizeToolArgValue(key, value)
	}
	return sanitized
}

func sanitizeToolArgValue(key string, value interface{}) interface{} {
	if isSensitiveArgKey(key) {
		return "<redacted>"
	}
	if s, ok := value.(string); ok {
		return truncateLogString(redact.Redact(s))
	}
	return value
}

func isSensitiveArgKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
	for _, fragment := range sensitiveArgKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

func truncateLogString(value string) string {
	const maxLen = 256
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "...(truncated)"
}
