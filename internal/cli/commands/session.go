package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	// Registers the network transport.
	_ "github.com/leapstack-labs/leapbind/internal/backend/httpws"
	"github.com/leapstack-labs/leapbind/internal/backend/memory"
	"github.com/leapstack-labs/leapbind/internal/config"
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// session is a headless binding session: a Context on the memory backend
// whose dispatch loop runs until Close.
type session struct {
	ctx    *bind.Context
	tech   *memory.Technology
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan error
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	bctx, err := bind.NewContext(cfg.Selection(memory.Name, logger))
	if err != nil {
		return nil, err
	}
	tech, ok := bctx.Technology().(*memory.Technology)
	if !ok {
		return nil, fmt.Errorf("headless session needs the %s backend", memory.Name)
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	s := &session{
		ctx:    bctx,
		tech:   tech,
		logger: logger,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { s.done <- tech.Run(runCtx) }()
	logger.Debug("session started", "context", bctx.String())
	return s, nil
}

// do runs fn on the dispatch loop and waits for it.
func (s *session) do(ctx context.Context, fn func()) error {
	return s.tech.Loop().Call(ctx, func(context.Context) { fn() })
}

// Close stops the dispatch loop and releases the transport.
func (s *session) Close() error {
	s.cancel()
	err := <-s.done
	if c, ok := s.ctx.Transport().(io.Closer); ok {
		_ = c.Close()
	}
	return err
}
