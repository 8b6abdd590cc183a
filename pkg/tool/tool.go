package tool

import "context"

// Tool is a named, schema-described unit of executable capability. Concrete
// tools are stateless across invocations: credentials and clients are bound
// at construction, nothing is carried between calls.
type Tool interface {
	Name() string
	Description() string
	Schema() Schema

	// Execute runs the tool with caller-supplied parameters. It may block on
	// network or compute work; the dispatcher imposes no timeout of its own,
	// so cancellation comes from the request context if at all.
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// Request is one caller-supplied tool invocation.
type Request struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Descriptor is the introspection view of a registered tool.
type Descriptor struct {
	Name        string
	Description string
	Schema      Schema
}
