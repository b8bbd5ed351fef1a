package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowmesh/flowgraph-go/graph/tool"
)

// Factory creates a component instance for one vertex from its parameter
// bindings. Factories are registered in a Catalog under a type name and
// invoked once per vertex per prepared run.
type Factory func(params map[string]any) (Component, error)

// Catalog maps component type names to factories.
//
// A Catalog is the boundary between the engine and the component
// implementations: the engine resolves every vertex's `type` field against
// it at prepare time and fails fast on unknown types.
//
// Catalogs are safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Builtin returns a catalog preloaded with the built-in component set:
// text_input, text_output, template, loop, and tool_runner. Model-backed
// components carry provider clients and are registered by the caller via
// RegisterModel or a custom factory.
func Builtin() *Catalog {
	c := NewCatalog()
	c.MustRegister("text_input", func(params map[string]any) (Component, error) {
		return &TextInput{}, nil
	})
	c.MustRegister("text_output", func(params map[string]any) (Component, error) {
		return &TextOutput{}, nil
	})
	c.MustRegister("template", func(params map[string]any) (Component, error) {
		return NewTemplate(stringParam(params, "template")), nil
	})
	c.MustRegister("loop", func(params map[string]any) (Component, error) {
		return &Loop{}, nil
	})
	c.MustRegister("tool_runner", func(params map[string]any) (Component, error) {
		name, _ := params["tool"].(string)
		switch name {
		case "", "http_request":
			return NewToolRunner(tool.NewHTTPTool()), nil
		default:
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
	})
	return c
}

// Register adds a factory under the given type name.
//
// Returns an error if the name is empty, the factory is nil, or the name is
// already taken.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("component type name cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("component factory cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("duplicate component type: %s", name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is Register but panics on error. Intended for package-level
// and constructor-time registration of built-ins.
func (c *Catalog) MustRegister(name string, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

// RegisterModel registers a chat-model component under the given type name,
// binding it to the provided ChatModel client.
func (c *Catalog) RegisterModel(name string, m ChatModel) error {
	return c.Register(name, func(params map[string]any) (Component, error) {
		return NewModel(m, stringParam(params, "system_prompt")), nil
	})
}

// Create instantiates a component of the named type.
func (c *Catalog) Create(name string, params map[string]any) (Component, error) {
	c.mu.RLock()
	f, ok := c.factories[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown component type: %s", name)
	}
	return f(params)
}

// Types returns the registered type names in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	s, _ := params[key].(string)
	return s
}
