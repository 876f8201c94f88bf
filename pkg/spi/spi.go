// Package spi provides the Service Provider Interface a backend implements
// to plug into the binding engine. A backend supplies either the rendering
// capability (Technology), the transport capability (Transport), or both.
//
// The engine never depends on a concrete backend: it drives these interfaces
// from pkg/bind, and backends are selected when a bind.Context is built.
package spi

import "context"

// PropertyBinding is the handle a Technology uses to read or write one
// property of a bound model.
type PropertyBinding interface {
	// Name is the property name as registered in the model schema.
	Name() string

	// Value returns the current value. List properties are returned as
	// the result of Technology.WrapArray.
	Value() any

	// SetValue writes a new value back into the model. Writing a read-only
	// property fails.
	SetValue(value any) error

	// ReadOnly reports whether the property is computed or otherwise not
	// writable from the rendering side.
	ReadOnly() bool
}

// FunctionBinding is the handle a Technology uses to invoke one function
// of a bound model.
type FunctionBinding interface {
	Name() string

	// Call invokes the function. data is the item the function operates on
	// (may be nil) and event is the backend-specific triggering event.
	Call(data, event any)
}

// Technology is the rendering capability. It turns a model into a
// backend-side observable and keeps it in sync.
//
// Handles returned by WrapModel are opaque to the engine.
type Technology interface {
	// WrapModel creates the observable handle for a model.
	WrapModel(model any) any

	// Bind registers a property on the observable.
	Bind(b PropertyBinding, model any, data any)

	// ValueHasMutated tells the observable that a property changed.
	ValueHasMutated(data any, propertyName string)

	// Expose registers a function on the observable.
	Expose(fb FunctionBinding, model any, data any)

	// ApplyBindings attaches the observable to the rendering surface.
	ApplyBindings(data any)

	// WrapArray converts values into the backend array representation.
	// Elements that are bound models are passed as their observable handles.
	WrapArray(values []any) any
}

// Executor is the serialized dispatch context owned by a rendering backend.
//
// Execute runs task synchronously when ctx already belongs to the dispatch
// context, otherwise it enqueues task and returns immediately. Tasks are
// executed in FIFO order.
type Executor interface {
	Execute(ctx context.Context, task func(ctx context.Context))
}

// Extractor pulls named fields out of raw transport data. A Transport may
// implement it when its raw representation is not plain decoded JSON.
type Extractor interface {
	Extract(raw any, props []string, values []any)
}

// Receiver gets the outcome of a request-style call. Exactly one of
// Succeed or Fail is expected per call; extra calls are ignored.
type Receiver interface {
	Succeed(values []any)
	Fail(err error)
}

// SocketReceiver gets the events of a duplex channel in production order.
type SocketReceiver interface {
	Opened()
	Message(values []any)
	Failed(err error)
	Closed()
}

// JSONCall describes one request-style call handed to a Transport.
type JSONCall struct {
	// URL is the final URL. For callback-wrapped calls the generated
	// callback name is already spliced in.
	URL string

	// Method is the HTTP-like method. Never empty.
	Method string

	// Payload is the serialized request body or nil.
	Payload []byte

	// Callback is the generated callback name for callback-wrapped
	// (JSONP) calls, empty otherwise.
	Callback string

	// Receiver gets the outcome.
	Receiver Receiver
}

// IsJSONP reports whether the response is wrapped in a callback invocation.
func (c *JSONCall) IsJSONP() bool {
	return c.Callback != ""
}

// Transport is the transport capability: request-style and duplex
// communication. None of its methods may block; outcomes are reported
// through the receivers, possibly from other goroutines.
type Transport interface {
	// LoadJSON starts a request-style call.
	LoadJSON(call *JSONCall)

	// OpenWS opens a duplex channel and returns the transport handle for it.
	OpenWS(url string, payload []byte, rcvr SocketReceiver) any

	// Send writes payload to an open channel. A nil payload asks the
	// transport to close the channel; the close event still arrives
	// through the SocketReceiver.
	Send(socket any, url string, payload []byte)
}
