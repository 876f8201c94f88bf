package bind

import (
	"fmt"
	"reflect"
	"sync"
)

// MessageKind tags asynchronous callbacks delivered to Ops.OnMessage.
type MessageKind int

// Message kinds. Request-style channels only deliver KindMessage and KindError.
const (
	KindOpen MessageKind = iota
	KindMessage
	KindError
	KindClose
)

func (k MessageKind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindMessage:
		return "message"
	case KindError:
		return "error"
	case KindClose:
		return "close"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Ops is the dispatch table a generated model kind supplies. Properties and
// functions are addressed by the index they were registered with.
type Ops[M any] struct {
	SetValue func(model M, index int, value any)
	GetValue func(model M, index int) any
	Call     func(model M, index int, data, event any)

	// CloneTo copies model into a new instance bound to ctx.
	CloneTo func(model M, ctx *Context) M

	// Read creates a new instance from raw data.
	Read func(ctx *Context, raw any) (M, error)

	// OnChange fans out invalidation of computed properties depending on
	// the property at index.
	OnChange func(model M, index int)

	// ProtoFor finds the Proto of obj, or nil if obj is not one of ours.
	ProtoFor func(obj any) *Proto

	// OnMessage receives asynchronous channel callbacks.
	OnMessage func(model M, index int, kind MessageKind, data any)
}

// Type is the schema of one model kind: ordered property names, read-only
// flags and function names, plus the Ops dispatch table.
//
// Each index is registered exactly once, before the first Proto is bound.
type Type[M any] struct {
	name             string
	propertyNames    []string
	propertyReadOnly []bool
	propertySet      []bool
	functions        []string
	functionSet      []bool
	ops              Ops[M]
}

// NewType allocates a schema with room for the given number of properties
// and functions. Register it with Register once every index is filled.
func NewType[M any](properties, functions int, ops Ops[M]) *Type[M] {
	return &Type[M]{
		name:             reflect.TypeFor[M]().String(),
		propertyNames:    make([]string, properties),
		propertyReadOnly: make([]bool, properties),
		propertySet:      make([]bool, properties),
		functions:        make([]string, functions),
		functionSet:      make([]bool, functions),
		ops:              ops,
	}
}

// Name returns the model class name.
func (t *Type[M]) Name() string {
	return t.name
}

// RegisterProperty registers the property at index.
func (t *Type[M]) RegisterProperty(name string, index int, readOnly bool) error {
	if index < 0 || index >= len(t.propertyNames) {
		return programmerError(fmt.Sprintf("register property %s[%d]", t.name, index), ErrIndexOutOfRange)
	}
	if t.propertySet[index] {
		return programmerError(fmt.Sprintf("register property %s[%d]", t.name, index), ErrAlreadyRegistered)
	}
	t.propertyNames[index] = name
	t.propertyReadOnly[index] = readOnly
	t.propertySet[index] = true
	return nil
}

// RegisterFunction registers the function at index.
func (t *Type[M]) RegisterFunction(name string, index int) error {
	if index < 0 || index >= len(t.functions) {
		return programmerError(fmt.Sprintf("register function %s[%d]", t.name, index), ErrIndexOutOfRange)
	}
	if t.functionSet[index] {
		return programmerError(fmt.Sprintf("register function %s[%d]", t.name, index), ErrAlreadyRegistered)
	}
	t.functions[index] = name
	t.functionSet[index] = true
	return nil
}

// PropertyNames returns a copy of the registered property names.
func (t *Type[M]) PropertyNames() []string {
	return append([]string(nil), t.propertyNames...)
}

// FunctionNames returns a copy of the registered function names.
func (t *Type[M]) FunctionNames() []string {
	return append([]string(nil), t.functions...)
}

// PropertyIndex returns the index of the named property or -1.
func (t *Type[M]) PropertyIndex(name string) int {
	for i, n := range t.propertyNames {
		if n == name {
			return i
		}
	}
	return -1
}

// CreateProto creates the binding state for obj in ctx.
func (t *Type[M]) CreateProto(obj M, ctx *Context) *Proto {
	return newProto(obj, t, ctx)
}

// SetValue dispatches a property write.
func (t *Type[M]) SetValue(model M, index int, value any) {
	t.ops.SetValue(model, index, value)
}

// GetValue dispatches a property read.
func (t *Type[M]) GetValue(model M, index int) any {
	return t.ops.GetValue(model, index)
}

// Call dispatches a function call.
func (t *Type[M]) Call(model M, index int, data, event any) {
	t.ops.Call(model, index, data, event)
}

// CopyJSON converts raw objects into models, filling dest up to the
// shorter of both slices.
func (t *Type[M]) CopyJSON(ctx *Context, src []any, dest []M) error {
	for i := 0; i < len(src) && i < len(dest); i++ {
		m, err := t.ops.Read(ctx, src[i])
		if err != nil {
			return fmt.Errorf("copy %s[%d]: %w", t.name, i, err)
		}
		dest[i] = m
	}
	return nil
}

func (t *Type[M]) complete() bool {
	for _, ok := range t.propertySet {
		if !ok {
			return false
		}
	}
	for _, ok := range t.functionSet {
		if !ok {
			return false
		}
	}
	return true
}

func (t *Type[M]) typeName() string { return t.name }

func (t *Type[M]) propertyCount() int { return len(t.propertyNames) }

func (t *Type[M]) functionCount() int { return len(t.functions) }

func (t *Type[M]) propertyName(i int) string { return t.propertyNames[i] }

func (t *Type[M]) isReadOnly(i int) bool { return t.propertyReadOnly[i] }

func (t *Type[M]) functionName(i int) string { return t.functions[i] }

func (t *Type[M]) indexOf(name string) int { return t.PropertyIndex(name) }

func (t *Type[M]) setValue(obj any, i int, v any) { t.ops.SetValue(obj.(M), i, v) }

func (t *Type[M]) getValue(obj any, i int) any { return t.ops.GetValue(obj.(M), i) }

func (t *Type[M]) call(obj any, i int, data, event any) { t.ops.Call(obj.(M), i, data, event) }

func (t *Type[M]) onChange(obj any, i int) {
	if t.ops.OnChange != nil {
		t.ops.OnChange(obj.(M), i)
	}
}

func (t *Type[M]) onMessage(obj any, i int, k MessageKind, data any) {
	if t.ops.OnMessage != nil {
		t.ops.OnMessage(obj.(M), i, k, data)
	}
}

func (t *Type[M]) cloneTo(obj any, ctx *Context) any { return t.ops.CloneTo(obj.(M), ctx) }

func (t *Type[M]) read(ctx *Context, raw any) (any, error) { return t.ops.Read(ctx, raw) }

func (t *Type[M]) protoFor(obj any) *Proto {
	if t.ops.ProtoFor != nil {
		return t.ops.ProtoFor(obj)
	}
	if b, ok := obj.(interface{ Proto() *Proto }); ok {
		return b.Proto()
	}
	return nil
}

// kind is implemented by every *Type[M]; it lets Proto dispatch without
// knowing M.
type kind interface {
	typeName() string
	complete() bool
	propertyCount() int
	functionCount() int
	propertyName(i int) string
	isReadOnly(i int) bool
	functionName(i int) string
	indexOf(name string) int
	setValue(obj any, i int, v any)
	getValue(obj any, i int) any
	call(obj any, i int, data, event any)
	onChange(obj any, i int)
	onMessage(obj any, i int, k MessageKind, data any)
	cloneTo(obj any, ctx *Context) any
	read(ctx *Context, raw any) (any, error)
	protoFor(obj any) *Proto
}

// types is the process-wide class -> Type registry.
var (
	typesMu sync.RWMutex
	types   = make(map[reflect.Type]kind)
)

// Register publishes t for its model class. Registration is insert-if-absent:
// each class is initialized once, and a later call returns the Type that
// won together with loaded=true.
func Register[M any](t *Type[M]) (registered *Type[M], loaded bool) {
	key := reflect.TypeFor[M]()

	typesMu.Lock()
	defer typesMu.Unlock()
	if existing, ok := types[key]; ok {
		return existing.(*Type[M]), true
	}
	types[key] = t
	return t, false
}

// TypeOf returns the registered Type of model class M.
func TypeOf[M any]() (*Type[M], bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	k, ok := types[reflect.TypeFor[M]()]
	if !ok {
		return nil, false
	}
	return k.(*Type[M]), true
}

// kindOf returns the registered kind for the dynamic type of obj.
func kindOf(obj any) (kind, bool) {
	if obj == nil {
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	return kindFor(rv.Type())
}

func kindFor(rt reflect.Type) (kind, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	k, ok := types[rt]
	return k, ok
}

// IsModel reports whether obj is an instance of a registered model class.
func IsModel(obj any) bool {
	_, ok := kindOf(obj)
	return ok
}

// ProtoOf finds the Proto associated with obj, if obj is a bound model.
func ProtoOf(obj any) (*Proto, bool) {
	k, ok := kindOf(obj)
	if !ok {
		return nil, false
	}
	p := k.protoFor(obj)
	return p, p != nil
}

// ReadModel deserializes raw into a new instance of the registered class M.
func ReadModel[M any](ctx *Context, raw any) (M, error) {
	var zero M
	t, ok := TypeOf[M]()
	if !ok {
		return zero, programmerError("read "+reflect.TypeFor[M]().String(), ErrUnknownType)
	}
	return t.ops.Read(ctx, raw)
}
