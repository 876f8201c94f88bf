package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/backend/memory"
	"github.com/leapstack-labs/leapbind/internal/config"
	"github.com/leapstack-labs/leapbind/internal/contacts"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	Method  string
	Data    string
	JSONP   bool
	After   string
	Timeout time.Duration
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Load a contact from a JSON endpoint and print the bound model",
		Long: `Load a contact from a JSON endpoint into a headless binding session and
print the resulting observable.

With --jsonp the response is expected as a callback invocation. The
generated callback name is appended to the URL, followed by --after.`,
		Example: `  leapbind fetch https://example.com/people/1
  leapbind fetch "https://example.com/people/1?callback=" --jsonp -o yaml
  leapbind fetch https://example.com/search -X POST -d '{"name":"jane"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Method, "method", "X", "", "Request method (default: GET, or POST with --data)")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Request body")
	cmd.Flags().BoolVar(&opts.JSONP, "jsonp", false, "Expect a callback-wrapped response")
	cmd.Flags().StringVar(&opts.After, "after", "", "URL suffix placed after the callback name")
	cmd.Flags().DurationVar(&opts.Timeout, "wait", 30*time.Second, "How long to wait for the response")

	return cmd
}

func runFetch(cmd *cobra.Command, url string, opts *FetchOptions) error {
	cfg := config.FromContext(cmd.Context())

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	endpoints := contacts.Endpoints{Source: url}
	if opts.JSONP {
		after := opts.After
		endpoints.SourceAfter = &after
	}
	var data any
	if opts.Data != "" {
		data = opts.Data
	}

	var person *contacts.Person
	finished := make(chan string, 1)
	unsubscribe := s.tech.Subscribe(func(c memory.Change) {
		if c.Property != "status" || c.Observable.Model() != person {
			return
		}
		if status := person.Status(); status != "loading" {
			select {
			case finished <- status:
			default:
			}
		}
	})
	defer unsubscribe()

	var bindErr error
	if err := s.do(cmd.Context(), func() {
		person = contacts.NewPerson(s.ctx, endpoints)
		if bindErr = person.Proto().ApplyBindings(); bindErr == nil {
			person.RefreshWith(opts.Method, data)
		}
	}); err != nil {
		return err
	}
	if bindErr != nil {
		return bindErr
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	var status string
	select {
	case status = <-finished:
	case <-ctx.Done():
		return fmt.Errorf("fetch %s: no response within %s", url, opts.Timeout)
	}
	if status != "loaded" {
		return fmt.Errorf("fetch %s: %s", url, status)
	}

	var snapshot map[string]any
	if err := s.do(cmd.Context(), func() {
		snapshot = s.tech.Roots()[0].Snapshot()
	}); err != nil {
		return err
	}
	return renderSnapshot(cmd.OutOrStdout(), cfg.OutputFormat, snapshot)
}
