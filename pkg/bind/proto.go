package bind

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Proto is the binding state of one model instance. Generated model code
// uses it to guard writes, to notify the rendering capability and to talk
// to the transport capability.
//
// A Proto is not safe for concurrent use. The lock flag only detects
// re-entry within one call chain; callers must serialize access to a model
// instance, normally by running on the Context's dispatch context.
type Proto struct {
	obj     any
	kind    kind
	context *Context

	locked bool
	bound  bool
	handle any
}

func newProto(obj any, k kind, ctx *Context) *Proto {
	return &Proto{obj: obj, kind: k, context: ctx}
}

// Context returns the binding session this Proto operates in.
func (p *Proto) Context() *Context {
	return p.context
}

// AcquireLock enters the write guard before a multi-property update.
func (p *Proto) AcquireLock() error {
	if p.locked {
		return programmerError("acquire lock on "+p.kind.typeName(), ErrLocked)
	}
	p.locked = true
	return nil
}

// VerifyUnlocked fails while a guarded update is in progress.
func (p *Proto) VerifyUnlocked() error {
	if p.locked {
		return programmerError("read "+p.kind.typeName(), ErrLocked)
	}
	return nil
}

// ReleaseLock leaves the write guard. Pair it with AcquireLock.
func (p *Proto) ReleaseLock() {
	p.locked = false
}

// Bound reports whether the observable has been materialized.
func (p *Proto) Bound() bool {
	return p.bound
}

// ValueHasMutated notifies the rendering capability that a property
// changed. Before the first binding it does nothing: the new state is
// picked up when the observable is materialized.
func (p *Proto) ValueHasMutated(propertyName string) {
	if !p.bound {
		return
	}
	p.context.technology.ValueHasMutated(p.handle, propertyName)
}

// ApplyBindings materializes the observable on first use and attaches it
// to the rendering surface. Later calls only attach again.
func (p *Proto) ApplyBindings() error {
	h, err := p.initBindings()
	if err != nil {
		return err
	}
	p.context.technology.ApplyBindings(h)
	return nil
}

// RunInBrowser runs task on the dispatch context of the rendering backend:
// synchronously when ctx is already on it, later otherwise.
func (p *Proto) RunInBrowser(ctx context.Context, task func(ctx context.Context)) {
	p.context.Execute(ctx, task)
}

// Extract pulls the named fields of raw into values. Both slices must have
// the same length.
func (p *Proto) Extract(raw any, names []string, values []any) error {
	if len(names) != len(values) {
		return programmerError(fmt.Sprintf("extract %d names into %d values", len(names), len(values)), ErrLengthMismatch)
	}
	if e, ok := p.context.transport.(spi.Extractor); ok {
		e.Extract(raw, names, values)
		return nil
	}
	extractFields(raw, names, values)
	return nil
}

// ToString converts raw data, or its property prop when prop is not
// empty, to a string.
func (p *Proto) ToString(raw any, prop string) string {
	return StringValue(p.field(raw, prop))
}

// ToNumber converts raw data, or its property prop when prop is not
// empty, to a number. Unconvertible values yield NaN.
func (p *Proto) ToNumber(raw any, prop string) float64 {
	return NumberValue(p.field(raw, prop))
}

func (p *Proto) field(raw any, prop string) any {
	if prop == "" {
		return raw
	}
	values := make([]any, 1)
	if err := p.Extract(raw, []string{prop}, values); err != nil {
		p.context.logger.Debug("extract failed", "prop", prop, "error", err)
		return nil
	}
	return values[0]
}

// Read deserializes raw into a new instance of the registered class M,
// bound to the same Context as p.
func Read[M any](p *Proto, raw any) (M, error) {
	return ReadModel[M](p.context, raw)
}

// initBindings materializes the observable exactly once.
func (p *Proto) initBindings() (any, error) {
	if p.bound {
		return p.handle, nil
	}
	if !p.kind.complete() {
		return nil, programmerError("bind "+p.kind.typeName(), ErrIncompleteSchema)
	}

	tech := p.context.technology
	h := tech.WrapModel(p.obj)
	for i := 0; i < p.kind.propertyCount(); i++ {
		tech.Bind(&propertyBinding{proto: p, index: i}, p.obj, h)
	}
	for i := 0; i < p.kind.functionCount(); i++ {
		tech.Expose(&functionBinding{proto: p, index: i}, p.obj, h)
	}
	p.handle = h
	p.bound = true
	p.context.logger.Debug("observable materialized", "type", p.kind.typeName())
	return h, nil
}

func (p *Proto) onChange(index int) {
	if index < 0 {
		return
	}
	p.kind.onChange(p.obj, index)
}

// exportValue converts a property value into what the rendering capability
// expects: lists become wrapped arrays and bound models become their
// observable handles.
func (p *Proto) exportValue(v any) any {
	if l, ok := v.(exporter); ok {
		values := l.exportValues()
		for i, e := range values {
			values[i] = exportElement(e)
		}
		return p.context.technology.WrapArray(values)
	}
	return exportElement(v)
}

func exportElement(v any) any {
	ep, ok := ProtoOf(v)
	if !ok {
		return v
	}
	h, err := ep.initBindings()
	if err != nil {
		ep.context.logger.Warn("cannot materialize nested model", "type", ep.kind.typeName(), "error", err)
		return v
	}
	return h
}

// exporter is implemented by List.
type exporter interface {
	exportValues() []any
}

type propertyBinding struct {
	proto *Proto
	index int
}

func (b *propertyBinding) Name() string {
	return b.proto.kind.propertyName(b.index)
}

func (b *propertyBinding) Value() any {
	return b.proto.exportValue(b.proto.kind.getValue(b.proto.obj, b.index))
}

func (b *propertyBinding) SetValue(value any) error {
	if b.ReadOnly() {
		return programmerError("set "+b.Name(), ErrReadOnly)
	}
	b.proto.kind.setValue(b.proto.obj, b.index, value)
	return nil
}

func (b *propertyBinding) ReadOnly() bool {
	return b.proto.kind.isReadOnly(b.index)
}

type functionBinding struct {
	proto *Proto
	index int
}

func (b *functionBinding) Name() string {
	return b.proto.kind.functionName(b.index)
}

func (b *functionBinding) Call(data, event any) {
	b.proto.kind.call(b.proto.obj, b.index, data, event)
}
