// Tool registry.
//
// Information Hiding:
// - Lookup table and registration order
// - Conversion to provider tool definitions

package tools

import (
	"fmt"
	"sync"
	"time"

	"github.com/richinex/sightline/llm"
)

// DefaultToolTimeout bounds one tool call, vision round trip included.
const DefaultToolTimeout = 2 * time.Minute

// Registry holds the tools offered to the planner. Listings follow
// registration order, which is the order the model sees them in.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Tool
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	name := tool.Metadata().Name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns tool metadata in registration order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolMetadata, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name].Metadata()
	}
	return out
}

// Definitions returns the tools in the form providers accept for native
// tool calling.
func (r *Registry) Definitions() []llm.ToolDefinition {
	list := r.List()
	defs := make([]llm.ToolDefinition, len(list))
	for i, meta := range list {
		defs[i] = llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  meta.Schema(),
		}
	}
	return defs
}

// NewBrowserRegistry registers the browser tools in workflow order: look,
// locate, then act.
func NewBrowserRegistry(d Describer, l Locator, a Actuator) (*Registry, error) {
	registry := NewRegistry()
	for _, t := range []Tool{
		NewDescribeWebpageTool(d),
		NewGetCoordinatesTool(l),
		NewClickTool(a),
		NewWriteTool(a),
	} {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register browser tools: %w", err)
		}
	}
	return registry, nil
}
