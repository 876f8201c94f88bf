package web

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/leapbind/pkg/bind"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Observable is the browser side handle of a bound model. Its signals
// live under a namespace derived from its id.
type Observable struct {
	id            string
	namespace     string
	model         any
	properties    []spi.PropertyBinding
	index         map[string]int
	functions     map[string]spi.FunctionBinding
	functionNames []string

	// values caches the last value read per property and is confined to
	// the loop. changed holds the sequence number of the last mutation and
	// is guarded by Technology.mu.
	values  map[string]any
	changed map[string]uint64
}

// ID returns the unique observable id.
func (o *Observable) ID() string {
	return o.id
}

// Namespace returns the signal namespace.
func (o *Observable) Namespace() string {
	return o.namespace
}

// Model returns the bound model.
func (o *Observable) Model() any {
	return o.model
}

// Value returns the cached value of a property: the value captured at
// binding time until a change is pushed to the browser.
func (o *Observable) Value(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// refresh re-reads a property through its binding.
func (o *Observable) refresh(name string) any {
	i, ok := o.index[name]
	if !ok {
		return nil
	}
	v := o.properties[i].Value()
	o.values[name] = v
	return v
}

// signals reads every plain property as a signal value.
func (o *Observable) signals() map[string]any {
	out := make(map[string]any, len(o.properties))
	for _, p := range o.properties {
		v := o.refresh(p.Name())
		if _, ok := listItems(v); ok {
			continue
		}
		out[p.Name()] = signalValue(v)
	}
	return out
}

// apply writes signals coming from the browser back into the model.
// Read-only, list and unchanged values are skipped.
func (o *Observable) apply(signals map[string]any) error {
	for _, p := range o.properties {
		if p.ReadOnly() {
			continue
		}
		v, ok := signals[p.Name()]
		if !ok {
			continue
		}
		current := o.values[p.Name()]
		if _, ok := listItems(current); ok {
			continue
		}
		if bind.IsSame(signalValue(current), v) {
			continue
		}
		if err := p.SetValue(v); err != nil {
			return fmt.Errorf("set %s: %w", p.Name(), err)
		}
		o.values[p.Name()] = v
	}
	return nil
}

// call invokes an exposed function.
func (o *Observable) call(name string, data any) error {
	fb, ok := o.functions[name]
	if !ok {
		return fmt.Errorf("unknown function %q", name)
	}
	fb.Call(data, nil)
	return nil
}

// listItems reports whether v is a wrapped array. Arrays are rendered as
// elements, not signals.
func listItems(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func signalValue(v any) any {
	if isNil(v) {
		return nil
	}
	switch x := v.(type) {
	case *Observable:
		return x.signals()
	case fmt.Stringer:
		return x.String()
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
