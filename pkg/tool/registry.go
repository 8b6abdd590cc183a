package tool

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

type registryEntry struct {
	tool     Tool
	compiled *gojsonschema.Schema
}

// Registry maps tool names to tools. It is populated eagerly at startup and
// read-only afterwards; lookups are safe under concurrent request handling.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Register adds a tool. The schema definition is checked and compiled here so
// a malformed tool fails process start instead of a request. Registering the
// same name twice returns a DuplicateError.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Description() == "" {
		return fmt.Errorf("tool %s: description cannot be empty", name)
	}

	schema := t.Schema()
	if err := schema.Check(); err != nil {
		return fmt.Errorf("tool %s: invalid schema: %w", name, err)
	}
	compiled, err := schema.Compile()
	if err != nil {
		return fmt.Errorf("tool %s: failed to compile schema: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return &DuplicateError{Name: name}
	}
	r.entries[name] = &registryEntry{tool: t, compiled: compiled}
	r.order = append(r.order, name)

	log.Info().Str("tool", name).Msg("Tool registered")
	return nil
}

// Lookup returns the tool for name, or false if none is registered.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

// List returns descriptors for all registered tools in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.entries[name].tool
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return out
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

func (r *Registry) lookupEntry(name string) *registryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries[name]
}
