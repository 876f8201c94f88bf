// Package web provides the browser rendering backend. Observables are
// exposed as Datastar signals streamed over server-sent events, and model
// functions become @post actions.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/leapstack-labs/leapbind/internal/dispatch"
	"github.com/leapstack-labs/leapbind/pkg/bind"
	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Name is the registry name of the backend.
const Name = "web"

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
	Title string `mapstructure:"title"`
	// ItemFunctions are the model functions offered on each element of a
	// model list. The element is passed as the call data.
	ItemFunctions []string `mapstructure:"item_functions"`
	QueueWarn     int      `mapstructure:"queue_warn"`
	Logger        *slog.Logger
}

// Technology is the browser rendering capability. It must be driven by
// Run, normally through Server.Serve.
type Technology struct {
	title         string
	itemFunctions []string
	loop          *dispatch.Loop
	notifier      *notifier
	logger        *slog.Logger

	mu          sync.RWMutex
	observables map[string]*Observable
	roots       []*Observable
	seq         uint64
}

// New creates the backend.
func New(opts Options) *Technology {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	title := opts.Title
	if title == "" {
		title = "LeapBind"
	}
	return &Technology{
		title:         title,
		itemFunctions: opts.ItemFunctions,
		loop:          dispatch.New(dispatch.Config{Name: Name, QueueWarn: opts.QueueWarn, Logger: logger}),
		notifier:      newNotifier(),
		logger:        logger,
		observables:   make(map[string]*Observable),
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

func (t *Technology) WrapModel(model any) any {
	id := uuid.New()
	o := &Observable{
		id:        id.String(),
		namespace: "o" + strings.ReplaceAll(id.String(), "-", "")[:12],
		model:     model,
		index:     make(map[string]int),
		functions: make(map[string]spi.FunctionBinding),
		values:    make(map[string]any),
		changed:   make(map[string]uint64),
	}
	t.mu.Lock()
	t.observables[o.id] = o
	t.mu.Unlock()
	return o
}

// Bind captures the value at binding time. It is what the first read of
// the property returns.
func (t *Technology) Bind(b spi.PropertyBinding, _ any, data any) {
	o := data.(*Observable)
	o.index[b.Name()] = len(o.properties)
	o.properties = append(o.properties, b)
	o.values[b.Name()] = b.Value()
}

func (t *Technology) ValueHasMutated(data any, propertyName string) {
	o := data.(*Observable)

	t.mu.Lock()
	t.seq++
	o.changed[propertyName] = t.seq
	t.mu.Unlock()

	t.notifier.broadcast()
}

func (t *Technology) Expose(fb spi.FunctionBinding, _ any, data any) {
	o := data.(*Observable)
	o.functions[fb.Name()] = fb
	o.functionNames = append(o.functionNames, fb.Name())
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
	t.logger.Debug("observable attached", "id", o.id, "namespace", o.namespace)
	t.seq++
	t.notifier.broadcast()
}

func (t *Technology) WrapArray(values []any) any {
	return append([]any(nil), values...)
}

// Roots returns the attached observables in order.
func (t *Technology) Roots() []*Observable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Observable(nil), t.roots...)
}

// Lookup finds an observable by id.
func (t *Technology) Lookup(id string) (*Observable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.observables[id]
	return o, ok
}

// Seq returns the current change sequence number.
func (t *Technology) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

// update is one batch of changes pushed to a browser.
type update struct {
	signals map[string]any
	lists   []listView
	seq     uint64
}

func (u *update) empty() bool {
	return len(u.signals) == 0 && len(u.lists) == 0
}

// changesSince collects what changed after since: signals keyed by
// namespace, plus re-rendered model lists. It must run on the loop.
func (t *Technology) changesSince(since uint64) *update {
	t.mu.RLock()
	seq := t.seq
	type pending struct {
		o     *Observable
		names []string
	}
	var work []pending
	for _, o := range t.observables {
		var names []string
		for name, at := range o.changed {
			if at > since {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			work = append(work, pending{o: o, names: names})
		}
	}
	t.mu.RUnlock()

	u := &update{signals: make(map[string]any), seq: seq}
	for _, w := range work {
		props := make(map[string]any, len(w.names))
		for _, name := range w.names {
			v := w.o.refresh(name)
			if items, ok := listItems(v); ok {
				u.lists = append(u.lists, newListView(w.o, name, items, t.itemFunctions))
				continue
			}
			props[name] = signalValue(v)
		}
		if len(props) > 0 {
			u.signals[w.o.namespace] = props
		}
	}
	return u
}
