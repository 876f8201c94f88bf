// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/config"
	basetestutil "github.com/leapstack-labs/leapbind/internal/testutil"
)

// PersonJSON is the contact served by NewPersonServer.
const PersonJSON = `{"firstName":"Jane","lastName":"Smith","addresses":[{"street":"Main St 1","town":"Springfield"}]}`

// WriteSeed writes a JSON seed file into a temporary directory and returns
// its path.
func WriteSeed(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "person.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

// CommandContext returns a context carrying cfg and a logger writing to
// t.Log.
func CommandContext(t *testing.T, cfg *config.Config) context.Context {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	ctx := config.WithConfig(t.Context(), cfg)
	return config.WithLogger(ctx, basetestutil.NewTestLogger(t))
}

// Result holds the captured output of a command run.
type Result struct {
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
	Err    error
}

// Output returns the stdout output as a string.
func (r *Result) Output() string {
	return r.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (r *Result) ErrorOutput() string {
	return r.ErrOut.String()
}

// Run executes cmd with args and captured output. Usage and error
// printing are silenced the way the root command does.
func Run(ctx context.Context, cmd *cobra.Command, stdin io.Reader, args ...string) *Result {
	r := &Result{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(r.Out)
	cmd.SetErr(r.ErrOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	r.Err = cmd.ExecuteContext(ctx)
	return r
}

var upgrader = websocket.Upgrader{}

// NewPersonServer serves the test contact:
//
//	/person        PersonJSON
//	/jsonp/<cb>    PersonJSON wrapped in <cb>(...)
//	/missing       404
//	/ws            websocket echo; a frame "bye" closes the channel
func NewPersonServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/person", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, PersonJSON)
	})
	mux.HandleFunc("/jsonp/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "%s(%s);", strings.TrimPrefix(r.URL.Path, "/jsonp/"), PersonJSON)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "bye" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// WebSocketURL returns the ws:// URL of path on srv.
func WebSocketURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
