package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/backend/memory"
	"github.com/leapstack-labs/leapbind/internal/contacts"
)

// WSOptions holds options for the ws command.
type WSOptions struct {
	History string
	Timeout time.Duration
}

// NewWSCommand creates the ws command.
func NewWSCommand() *cobra.Command {
	opts := &WSOptions{}

	cmd := &cobra.Command{
		Use:   "ws <url>",
		Short: "Follow a contact's live feed over a websocket",
		Long: `Open a duplex channel to a websocket endpoint and follow it interactively.

The contact is sent as the first frame. Every line typed is sent as is;
incoming messages are appended to the contact's inbox and printed.

Commands:
  .close    ask the server to close the channel
  .status   show the channel status
  .inbox    show every message received so far
  .quit     close the channel and exit`,
		Example: `  leapbind ws wss://example.com/feed`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWS(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.History, "history", "", "History file for the prompt")
	cmd.Flags().DurationVar(&opts.Timeout, "wait", 5*time.Second, "How long to wait for the channel to close")

	return cmd
}

// wsShell drives one live feed from prompt lines.
type wsShell struct {
	s      *session
	person *contacts.Person
	out    io.Writer
	styles *Styles

	mu      sync.Mutex
	printed int
	ended   chan struct{}
	endOnce sync.Once
}

func newWSShell(s *session, url string, out io.Writer) (*wsShell, error) {
	sh := &wsShell{s: s, out: out, styles: newStyles(out), ended: make(chan struct{})}

	var bindErr error
	err := s.do(context.Background(), func() {
		sh.person = contacts.NewPerson(s.ctx, contacts.Endpoints{Live: url})
		bindErr = sh.person.Proto().ApplyBindings()
	})
	if err != nil {
		return nil, err
	}
	if bindErr != nil {
		return nil, bindErr
	}
	return sh, nil
}

// observe prints status changes and new inbox entries. It runs on the
// dispatch loop.
func (sh *wsShell) observe(c memory.Change) {
	if c.Observable.Model() != sh.person {
		return
	}
	switch c.Property {
	case "status":
		status := sh.person.Status()
		sh.printStatus(status)
		if strings.HasPrefix(status, "disconnected") {
			sh.endOnce.Do(func() { close(sh.ended) })
		}
	case "inbox":
		sh.mu.Lock()
		defer sh.mu.Unlock()
		inbox := sh.person.Inbox()
		for ; sh.printed < inbox.Len(); sh.printed++ {
			_, _ = fmt.Fprintf(sh.out, "< %s\n", inbox.Get(sh.printed))
		}
	}
}

func (sh *wsShell) printStatus(status string) {
	_, _ = fmt.Fprintln(sh.out, sh.styles.statusStyle(status).Render("* "+status))
}

func (sh *wsShell) connect(ctx context.Context) error {
	return sh.s.do(ctx, sh.person.Connect)
}

// handle processes one prompt line and reports whether to quit.
func (sh *wsShell) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	switch strings.ToLower(line) {
	case ".quit", ".exit":
		return true
	case ".close":
		_ = sh.s.do(ctx, sh.person.Disconnect)
	case ".status":
		var status string
		_ = sh.s.do(ctx, func() { status = sh.person.Status() })
		sh.printStatus(status)
	case ".inbox":
		var inbox []string
		_ = sh.s.do(ctx, func() { inbox = sh.person.Inbox().Values() })
		for i, msg := range inbox {
			_, _ = fmt.Fprintf(sh.out, "%3d %s\n", i+1, msg)
		}
	case ".help":
		_, _ = fmt.Fprintln(sh.out, sh.styles.Muted.Render("Commands: .close .status .inbox .quit"))
	default:
		_ = sh.s.do(ctx, func() { sh.person.Send(line) })
	}
	return false
}

// shutdown closes the channel and waits for the terminal event.
func (sh *wsShell) shutdown(ctx context.Context, timeout time.Duration) {
	_ = sh.s.do(ctx, sh.person.Disconnect)
	select {
	case <-sh.ended:
	case <-time.After(timeout):
		sh.s.logger.Warn("channel did not close in time", "timeout", timeout)
	case <-ctx.Done():
	}
}

func runWS(cmd *cobra.Command, url string, opts *WSOptions) error {
	ctx := cmd.Context()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "leapbind> ",
		HistoryFile:     opts.History,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh, err := newWSShell(s, url, rl.Stdout())
	if err != nil {
		return err
	}
	sh.styles = newStyles(cmd.OutOrStdout())
	unsubscribe := s.tech.Subscribe(sh.observe)
	defer unsubscribe()

	if err := sh.connect(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(rl.Stdout(), "Connecting to %s. Type .help for commands, .quit to exit\n", url)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}
		if sh.handle(ctx, line) {
			break
		}
	}

	sh.shutdown(ctx, opts.Timeout)
	return nil
}
