// Package memory provides a headless rendering backend. Observables are
// plain property tables read through the model bindings, which makes the
// backend suitable for command line sessions and tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/leapstack-labs/leapbind/internal/dispatch"
	"github.com/leapstack-labs/leapbind/pkg/bind"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Name is the registry name of the backend.
const Name = "memory"

func init() {
	bind.RegisterTechnology(Name, func(settings bind.Settings, logger *slog.Logger) (spi.Technology, error) {
		var opts Options
		if err := mapstructure.Decode(settings, &opts); err != nil {
			return nil, fmt.Errorf("decode %s settings: %w", Name, err)
		}
		opts.Logger = logger
		return New(opts), nil
	})
}

// Options configures the backend.
type Options struct {
	QueueWarn int `mapstructure:"queue_warn"`
	Logger    *slog.Logger
}

// Change describes one property mutation of an observable.
type Change struct {
	Observable *Observable
	Property   string
}

// Technology is the headless rendering capability. It owns a dispatch
// loop that must be started with Run.
type Technology struct {
	loop   *dispatch.Loop
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[int]func(Change)
	nextID    int
	roots     []*Observable
}

// New creates the backend.
func New(opts Options) *Technology {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Technology{
		loop:      dispatch.New(dispatch.Config{Name: Name, QueueWarn: opts.QueueWarn, Logger: logger}),
		logger:    logger,
		listeners: make(map[int]func(Change)),
	}
}

// Run drives the dispatch loop until ctx is cancelled.
func (t *Technology) Run(ctx context.Context) error {
	return t.loop.Run(ctx)
}

// Loop returns the dispatch loop of the backend.
func (t *Technology) Loop() *dispatch.Loop {
	return t.loop
}

// Execute implements spi.Executor.
func (t *Technology) Execute(ctx context.Context, task func(ctx context.Context)) {
	t.loop.Execute(ctx, task)
}

// Subscribe registers fn for every property change. fn runs on the
// dispatch loop. The returned function unsubscribes.
func (t *Technology) Subscribe(fn func(Change)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Roots returns the observables attached with ApplyBindings, in order.
func (t *Technology) Roots() []*Observable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Observable(nil), t.roots...)
}

func (t *Technology) WrapModel(model any) any {
	return &Observable{
		id:        uuid.NewString(),
		model:     model,
		index:     make(map[string]int),
		functions: make(map[string]spi.FunctionBinding),
	}
}

func (t *Technology) Bind(b spi.PropertyBinding, _ any, data any) {
	o := data.(*Observable)
	o.index[b.Name()] = len(o.properties)
	o.properties = append(o.properties, b)
}

func (t *Technology) ValueHasMutated(data any, propertyName string) {
	o := data.(*Observable)
	o.version++

	t.mu.RLock()
	listeners := make([]func(Change), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.RUnlock()

	for _, fn := range listeners {
		fn(Change{Observable: o, Property: propertyName})
	}
}

func (t *Technology) Expose(fb spi.FunctionBinding, _ any, data any) {
	data.(*Observable).functions[fb.Name()] = fb
}

func (t *Technology) ApplyBindings(data any) {
	o := data.(*Observable)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.roots {
		if r == o {
			return
		}
	}
	t.roots = append(t.roots, o)
	t.logger.Debug("observable attached", "id", o.id)
}

func (t *Technology) WrapArray(values []any) any {
	return append([]any(nil), values...)
}
