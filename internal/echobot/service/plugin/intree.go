package plugin

import "fmt"

// Factory creates a plugin instance.
type Factory func() (Plugin, error)

// InTreeRegistry is an ordered set of built-in plugin factories, applied to
// a builder in registration order.
type InTreeRegistry struct {
	entries []inTreeEntry
}

type inTreeEntry struct {
	name    string
	factory Factory
}

func NewInTreeRegistry() *InTreeRegistry {
	return &InTreeRegistry{}
}

// Register appends a factory.
func (r *InTreeRegistry) Register(name string, factory Factory) {
	r.entries = append(r.entries, inTreeEntry{name: name, factory: factory})
}

// Len returns the number of registered factories.
func (r *InTreeRegistry) Len() int {
	return len(r.entries)
}

// Names returns the registered names in order.
func (r *InTreeRegistry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// ApplyTo instantiates every factory and adds the plugins to b.
func (r *InTreeRegistry) ApplyTo(b *AppBuilder) error {
	for _, e := range r.entries {
		p, err := e.factory()
		if err != nil {
			return fmt.Errorf("plugin %q: %w", e.name, err)
		}
		if err := b.AddPlugin(p); err != nil {
			return err
		}
	}
	return nil
}
