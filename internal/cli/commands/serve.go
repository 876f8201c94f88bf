package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/backend/web"
	"github.com/leapstack-labs/leapbind/internal/config"
	"github.com/leapstack-labs/leapbind/internal/contacts"
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Data   string
	Watch  bool
	Source string
	Live   string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bind a contact to the browser",
		Long: `Start a local web server that binds a contact to the browser.

Properties are kept in sync both ways over server-sent events, and the
contact's functions become buttons. A JSON seed file can provide the
initial values; with --watch it is reloaded whenever it changes.`,
		Example: `  # Serve an empty contact
  leapbind serve

  # Seed from a file and reload on change
  leapbind serve --data person.json --watch

  # Let the refresh and connect buttons talk to remote endpoints
  leapbind serve --source https://example.com/people/1 --live wss://example.com/feed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON file with the initial contact")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the data file when it changes")
	cmd.Flags().StringVar(&opts.Source, "source", "", "URL loaded by the refresh function")
	cmd.Flags().StringVar(&opts.Live, "live", "", "Websocket URL followed by the connect function")
	cmd.Flags().String("host", "", "Host to listen on (default: 127.0.0.1)")
	cmd.Flags().Int("port", 0, "Port to serve on (default: 8770)")
	cmd.Flags().String("title", "", "Page title")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	env, err := newServeEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer env.close()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", env.server.Addr())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return env.server.Serve(ctx)
}

// serveEnv is a server with its rendering backend.
type serveEnv struct {
	server *web.Server
	tech   *web.Technology
	close  func()
}

// newServeEnv builds the server and queues the creation of the bound
// contact. The contact appears once the dispatch loop runs.
func newServeEnv(cmd *cobra.Command, opts *ServeOptions) (*serveEnv, error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	sel := cfg.Selection(web.Name, logger)
	if sel.Settings[web.Name] == nil {
		sel.Settings[web.Name] = make(bind.Settings)
	}
	if _, ok := sel.Settings[web.Name]["item_functions"]; !ok {
		sel.Settings[web.Name]["item_functions"] = []string{"removeAddress"}
	}

	bctx, err := bind.NewContext(sel)
	if err != nil {
		return nil, err
	}
	closeTransport := func() {
		if c, ok := bctx.Transport().(io.Closer); ok {
			_ = c.Close()
		}
	}
	tech, ok := bctx.Technology().(*web.Technology)
	if !ok {
		closeTransport()
		return nil, fmt.Errorf("serve needs the %s backend", web.Name)
	}

	var seed any
	if opts.Data != "" {
		if seed, err = readSeed(opts.Data); err != nil {
			closeTransport()
			return nil, err
		}
	}

	var person *contacts.Person
	tech.Execute(context.Background(), func(context.Context) {
		person = contacts.NewPerson(bctx, contacts.Endpoints{Source: opts.Source, Live: opts.Live})
		if seed != nil {
			if err := person.Update(seed); err != nil {
				logger.Error("invalid seed data", "file", opts.Data, "error", err)
			}
		}
		if err := person.Proto().ApplyBindings(); err != nil {
			logger.Error("failed to bind contact", "error", err)
		}
	})

	watchFile := ""
	if opts.Watch && opts.Data != "" {
		watchFile = opts.Data
	}

	srv := web.NewServer(web.Config{
		Technology:    tech,
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		SessionSecret: sessionSecret(cfg, logger),
		Logger:        logger,
		WatchFile:     watchFile,
		OnFileChange: func(context.Context) {
			raw, err := readSeed(opts.Data)
			if err != nil {
				logger.Warn("failed to reload seed data", "file", opts.Data, "error", err)
				return
			}
			if err := person.Update(raw); err != nil {
				logger.Warn("invalid seed data", "file", opts.Data, "error", err)
				return
			}
			logger.Info("contact reloaded", "file", opts.Data)
		},
	})
	return &serveEnv{server: srv, tech: tech, close: closeTransport}, nil
}

// readSeed decodes a JSON seed file.
func readSeed(path string) (any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return raw, nil
}

// sessionSecret returns the configured secret or a random one. Browser
// sessions do not survive a restart with a random secret.
func sessionSecret(cfg *config.Config, logger *slog.Logger) string {
	if cfg.Server != nil && cfg.Server.SessionSecret != "" {
		return cfg.Server.SessionSecret
	}
	logger.Debug("no session secret configured, using a random one")
	return uuid.NewString()
}
