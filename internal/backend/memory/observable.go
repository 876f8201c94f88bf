package memory

import (
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Observable is the handle the backend creates for a bound model. Its
// methods read and write the model, so they must run on the dispatch loop.
type Observable struct {
	id         string
	model      any
	properties []spi.PropertyBinding
	index      map[string]int
	functions  map[string]spi.FunctionBinding
	version    int
}

// ID returns the unique observable id.
func (o *Observable) ID() string {
	return o.id
}

// Model returns the bound model instance.
func (o *Observable) Model() any {
	return o.model
}

// Version counts the mutations seen so far.
func (o *Observable) Version() int {
	return o.version
}

// Properties returns the property names in schema order.
func (o *Observable) Properties() []string {
	names := make([]string, len(o.properties))
	for i, p := range o.properties {
		names[i] = p.Name()
	}
	return names
}

// Functions returns the exposed function names.
func (o *Observable) Functions() []string {
	names := make([]string, 0, len(o.functions))
	for name := range o.functions {
		names = append(names, name)
	}
	return names
}

// Get reads a property.
func (o *Observable) Get(name string) (any, bool) {
	i, ok := o.index[name]
	if !ok {
		return nil, false
	}
	return o.properties[i].Value(), true
}

// Set writes a property through the model.
func (o *Observable) Set(name string, value any) error {
	i, ok := o.index[name]
	if !ok {
		return fmt.Errorf("unknown property %q", name)
	}
	return o.properties[i].SetValue(value)
}

// Call invokes an exposed function.
func (o *Observable) Call(name string, data any) error {
	fb, ok := o.functions[name]
	if !ok {
		return fmt.Errorf("unknown function %q", name)
	}
	fb.Call(data, nil)
	return nil
}

// Snapshot returns every property value. Nested observables and arrays of
// them are expanded recursively.
func (o *Observable) Snapshot() map[string]any {
	out := make(map[string]any, len(o.properties))
	for _, p := range o.properties {
		out[p.Name()] = expand(p.Value())
	}
	return out
}

func expand(v any) any {
	switch x := v.(type) {
	case *Observable:
		return x.Snapshot()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = expand(e)
		}
		return out
	}
	return v
}
