package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapbind/internal/config"
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// keyDescriptions documents the keys that have a default.
var keyDescriptions = map[string]string{
	"log_level":            "Log level: debug, info, warn or error",
	"verbose":              "Force debug logging",
	"output":               "Output format: auto, table, json or yaml",
	"server.host":          "Host the serve command listens on",
	"server.port":          "Port the serve command listens on",
	"server.title":         "Page title of the web backend",
	"http.timeout":         "Overall timeout of a JSON request",
	"http.connect_timeout": "Timeout of establishing a connection",
	"http.tls_timeout":     "Timeout of the TLS handshake",
	"ws.handshake_timeout": "Timeout of the websocket handshake",
	"ws.write_timeout":     "Timeout of writing one websocket frame",
	"ws.read_limit":        "Largest response body or frame accepted, in bytes",
	"dispatch.queue_warn":  "Queue length at which the dispatch loop logs a warning",
}

// generateConfigDocs writes the configuration reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leapbind configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("leapbind reads %s (or %s) from the working directory, or the file given with %s.",
		InlineCode(config.ConfigFileName), InlineCode(config.ConfigFileNameAlt), InlineCode("--config")))

	w.Header(2, "Keys")
	defaults := config.DefaultValues()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var rows [][]string
	for _, k := range keys {
		rows = append(rows, []string{
			InlineCode(k),
			InlineCode(fmt.Sprint(defaults[k])),
			InlineCode(config.EnvVar(k)),
			keyDescriptions[k],
		})
	}
	for _, k := range []string{"technology", "transport"} {
		rows = append(rows, []string{InlineCode(k), "-", InlineCode(config.EnvVar(k)), "Preferred " + k + " backend"})
	}
	w.Table([]string{"Key", "Default", "Environment", "Description"}, rows)

	w.Header(2, "Backends")
	w.Paragraph("The backends built into the binary:")
	var backends []string
	for _, name := range bind.ListTechnologies() {
		backends = append(backends, "rendering: "+InlineCode(name))
	}
	for _, name := range bind.ListTransports() {
		backends = append(backends, "transport: "+InlineCode(name))
	}
	w.BulletList(backends)
	w.Paragraph("Settings under " + InlineCode("backends.<name>") + " are handed to that backend as they are and win over the typed sections above.")

	w.Header(2, "Example")
	w.CodeBlock("yaml", strings.TrimSpace(`
log_level: debug
transport: http
server:
  port: 9000
http:
  timeout: 5s
backends:
  web:
    item_functions: [removeAddress]
`))

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
