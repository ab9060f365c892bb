package tools

import "context"

// ToolSpec declares a tool the bot may use. Schema maps an argument name to a
// loose type hint such as "str", "int" or "YYYY-MM-DD".
type ToolSpec struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Schema      map[string]string `yaml:"schema" json:"schema"`

	// Backend routes calls to a live HTTP service instead of the built-in mock.
	Backend *HTTPBackend `yaml:"backend,omitempty" json:"-"`
}

// Invocation is a planned tool call.
type Invocation struct {
	Name string
	Args map[string]interface{}
}

// Tool is a backend for one ToolSpec. Implementations return text that is
// handed to the model verbatim.
type Tool interface {
	Name() string
	Execute(ctx context.Context, args map[string]interface{}) string
}

// Router resolves a tool name to a result. It never fails: unknown tools and
// rejected arguments are reported in the returned text.
type Router interface {
	Call(ctx context.Context, name string, args map[string]interface{}) string
}
