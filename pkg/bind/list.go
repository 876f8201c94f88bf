package bind

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// List is an ordered sequence backing an array property of a model.
//
// Before the owning Proto is bound it is a plain container that can be
// initialized from raw data once. After binding every mutation applies the
// change, pushes the new array to the rendering capability and then fires
// change notification for the list property and each dependent property,
// in that order, before the mutating call returns.
//
// A List has a single writer: the goroutine running the owning model.
type List[T any] struct {
	proto       *Proto
	name        string
	index       int
	deps        []string
	items       []T
	initialized bool
}

// CreateList creates an empty list bound to the property name of p's model.
// onChange is the property index notified on mutation and dependingProps
// name the computed properties derived from the list.
func CreateList[T any](p *Proto, name string, onChange int, dependingProps ...string) *List[T] {
	return &List[T]{
		proto: p,
		name:  name,
		index: onChange,
		deps:  dependingProps,
	}
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	return len(l.items)
}

// Get returns the element at i.
func (l *List[T]) Get(i int) T {
	return l.items[i]
}

// Values returns a copy of the elements.
func (l *List[T]) Values() []T {
	return slices.Clone(l.items)
}

// All iterates over index/element pairs.
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.items)
}

// Append adds values at the end.
func (l *List[T]) Append(values ...T) {
	if len(values) == 0 {
		return
	}
	l.items = append(l.items, values...)
	l.notifyChange()
}

// Insert inserts values at position i.
func (l *List[T]) Insert(i int, values ...T) {
	l.items = slices.Insert(l.items, i, values...)
	l.notifyChange()
}

// Set replaces the element at i.
func (l *List[T]) Set(i int, v T) {
	l.items[i] = v
	l.notifyChange()
}

// RemoveAt deletes the element at i and returns it.
func (l *List[T]) RemoveAt(i int) T {
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.notifyChange()
	return v
}

// RemoveFunc deletes every element for which del returns true and reports
// how many were removed.
func (l *List[T]) RemoveFunc(del func(T) bool) int {
	before := len(l.items)
	l.items = slices.DeleteFunc(l.items, del)
	removed := before - len(l.items)
	if removed > 0 {
		l.notifyChange()
	}
	return removed
}

// Replace swaps the whole content.
func (l *List[T]) Replace(values []T) {
	l.items = slices.Clone(values)
	l.notifyChange()
}

// Clear removes all elements.
func (l *List[T]) Clear() {
	if len(l.items) == 0 {
		return
	}
	l.items = nil
	l.notifyChange()
}

// SortFunc sorts the elements in place.
func (l *List[T]) SortFunc(cmp func(a, b T) int) {
	slices.SortStableFunc(l.items, cmp)
	l.notifyChange()
}

func (l *List[T]) exportValues() []any {
	values := make([]any, len(l.items))
	for i, v := range l.items {
		values[i] = v
	}
	return values
}

func (l *List[T]) notifyChange() {
	p := l.proto
	if p == nil || !p.bound {
		return
	}
	p.ValueHasMutated(l.name)
	p.onChange(l.index)
	for _, dep := range l.deps {
		p.ValueHasMutated(dep)
		p.onChange(p.kind.indexOf(dep))
	}
}

// init fills the list from raw data. It is legal once, before binding.
func (l *List[T]) init(ctx *Context, raw any) error {
	if l.initialized {
		return programmerError("init list "+l.name, ErrAlreadyInitialized)
	}
	elems, err := rawElements(raw)
	if err != nil {
		return err
	}
	items := make([]T, 0, len(elems))
	for i, e := range elems {
		v, err := convertValue[T](ctx, e)
		if err != nil {
			return fmt.Errorf("init list %s[%d]: %w", l.name, i, err)
		}
		items = append(items, v)
	}
	l.items = append(l.items, items...)
	l.initialized = true
	return nil
}

func rawElements(raw any) ([]any, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot initialize list from %T", raw)
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, nil
}

// InitTo populates list from raw data. It must run before p is bound.
func InitTo[T any](p *Proto, list *List[T], raw any) error {
	if p.bound {
		return programmerError("init "+list.name, ErrAlreadyBound)
	}
	return list.init(p.context, raw)
}

// CloneList copies from into to, re-binding elements that are models to
// ctx. Other elements are copied as they are. Each element is checked on
// its own, so collections may mix models and plain values.
func CloneList[T any](to *List[T], ctx *Context, from []T) {
	cloned := make([]T, 0, len(from))
	for _, v := range from {
		if k, ok := kindOf(v); ok {
			if c, ok := k.cloneTo(v, ctx).(T); ok {
				cloned = append(cloned, c)
				continue
			}
		}
		cloned = append(cloned, v)
	}
	to.items = append(to.items, cloned...)
	to.notifyChange()
}
