// Package bind is the binding engine of LeapBind.
//
// It keeps a model instance in sync with an observable maintained by a
// pluggable rendering backend, and feeds asynchronous network traffic back
// into the model as ordered messages.
//
// This package contains:
//   - Context, Builder and the backend registry (RegisterTechnology, NewContext)
//   - Type, the per-model-kind schema with its Ops dispatch table
//   - Proto, the per-instance binding state (locking, bindings, channels)
//   - List, the sequence type backing array properties
//   - Value helpers (IsSame, HashPlus, ToJSON and conversions)
//
// Model kinds are normally generated code. A kind allocates its Type with
// NewType, registers every property and function index once, publishes it
// with Register and creates one Proto per instance with Type.CreateProto.
//
// The Golden Rule: pkg/bind imports ONLY pkg/spi and its libraries.
// Concrete backends live under internal/backend and depend on bind, never
// the reverse.
package bind
