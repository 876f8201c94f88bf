package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapbind/internal/cli"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	if err := generateCLIDocs(cli.NewRootCmd(), dir); err != nil {
		t.Fatalf("generateCLIDocs() error = %v", err)
	}

	for _, name := range []string{"index.md", "serve.md", "fetch.md", "ws.md", "backends.md"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.Contains(string(data), "DO NOT EDIT") {
			t.Errorf("%s lacks the generated marker", name)
		}
	}

	data, _ := os.ReadFile(filepath.Join(dir, "fetch.md"))
	if !strings.Contains(string(data), "`--jsonp`") {
		t.Errorf("fetch.md should document --jsonp, got:\n%s", data)
	}

	index, _ := os.ReadFile(filepath.Join(dir, "index.md"))
	for _, want := range []string{"## Quick start", "[`serve`](serve.md)", "`http.timeout`", "`--output`, `-o`"} {
		if !strings.Contains(string(index), want) {
			t.Errorf("index.md should contain %q", want)
		}
	}
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"shared indent", "  a\n    b\n  c", "a\n  b\nc"},
		{"blank lines kept", "\n  # comment\n\n  run\n", "# comment\n\nrun"},
		{"no indent", "a\nb", "a\nb"},
		{"tabs", "\ta\n\t\tb", "a\n\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedent(tt.in); got != tt.want {
				t.Errorf("dedent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	if err := generateConfigDocs(dir); err != nil {
		t.Fatalf("generateConfigDocs() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"`server.port`", "`8770`", "`LEAPBIND_HTTP__TIMEOUT`", "transport: `http`"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("configuration.md should contain %s", want)
		}
	}
}

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"A", "B"}, [][]string{{"x|y", "z"}})

	want := "| A | B |\n| --- | --- |\n| x\\|y | z |\n\n"
	if got := string(w.Bytes()); got != want {
		t.Errorf("Table() = %q, want %q", got, want)
	}
}
