package bind

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapbind/pkg/spi"
)

// Context bundles one rendering capability and one transport capability.
// It is immutable once built and scopes one binding session: every Proto
// created with it talks to the same backends.
type Context struct {
	technology     spi.Technology
	transport      spi.Transport
	executor       spi.Executor
	logger         *slog.Logger
	technologyName string
	transportName  string
}

// Technology returns the rendering capability.
func (c *Context) Technology() spi.Technology {
	return c.technology
}

// Transport returns the transport capability.
func (c *Context) Transport() spi.Transport {
	return c.transport
}

// Logger returns the session logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

func (c *Context) String() string {
	return fmt.Sprintf("bind.Context{technology=%s, transport=%s}", c.technologyName, c.transportName)
}

// Execute runs task on the dispatch context of the rendering backend.
// Without an executor the task runs synchronously.
func (c *Context) Execute(ctx context.Context, task func(ctx context.Context)) {
	if c.executor == nil {
		task(ctx)
		return
	}
	c.executor.Execute(ctx, task)
}

// Builder assembles a Context from explicitly injected capabilities.
type Builder struct {
	technology     spi.Technology
	transport      spi.Transport
	executor       spi.Executor
	logger         *slog.Logger
	technologyName string
	transportName  string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithTechnology sets the rendering capability. If it also implements
// spi.Executor and no executor was given, it becomes the dispatch context.
func (b *Builder) WithTechnology(name string, t spi.Technology) *Builder {
	b.technologyName = name
	b.technology = t
	return b
}

// WithTransport sets the transport capability.
func (b *Builder) WithTransport(name string, t spi.Transport) *Builder {
	b.transportName = name
	b.transport = t
	return b
}

// WithExecutor overrides the dispatch context.
func (b *Builder) WithExecutor(e spi.Executor) *Builder {
	b.executor = e
	return b
}

// WithLogger sets the logger. A nil logger discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the builder and returns the Context.
func (b *Builder) Build() (*Context, error) {
	if b.technology == nil || b.transport == nil {
		return nil, &LookupError{
			Technology:            b.technologyName,
			Transport:             b.transportName,
			AvailableTechnologies: ListTechnologies(),
			AvailableTransports:   ListTransports(),
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	executor := b.executor
	if executor == nil {
		if e, ok := b.technology.(spi.Executor); ok {
			executor = e
		}
	}

	return &Context{
		technology:     b.technology,
		transport:      b.transport,
		executor:       executor,
		logger:         logger.With("technology", b.technologyName, "transport", b.transportName),
		technologyName: b.technologyName,
		transportName:  b.transportName,
	}, nil
}
