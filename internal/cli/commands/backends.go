package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapbind/internal/config"
	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// backendInfo is one registered backend.
type backendInfo struct {
	Capability string `json:"capability" yaml:"capability"`
	Name       string `json:"name" yaml:"name"`
	Selected   bool   `json:"selected" yaml:"selected"`
}

// NewBackendsCommand creates the backends command.
func NewBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered rendering and transport backends",
		Long: `List the rendering and transport backends linked into this binary.

Backends marked as selected are the ones named by the technology and
transport settings. When nothing is selected the first working pair in
name order is used.`,
		Example: `  leapbind backends
  leapbind backends -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackends(cmd)
		},
	}
}

func listBackends(cfg *config.Config) []backendInfo {
	var out []backendInfo
	for _, name := range bind.ListTechnologies() {
		out = append(out, backendInfo{Capability: "rendering", Name: name, Selected: name == cfg.Technology})
	}
	for _, name := range bind.ListTransports() {
		out = append(out, backendInfo{Capability: "transport", Name: name, Selected: name == cfg.Transport})
	}
	return out
}

func runBackends(cmd *cobra.Command) error {
	cfg := config.FromContext(cmd.Context())
	if err := cfg.ValidateBackends(); err != nil {
		return err
	}
	backends := listBackends(cfg)

	w := cmd.OutOrStdout()
	format, err := resolveFormat(cfg.OutputFormat, w)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		return renderJSON(w, backends)
	case FormatYAML:
		return renderYAML(w, backends)
	}

	titleCaser := cases.Title(language.English)
	t := newTable(w, table.Row{"Capability", "Name", "Selected"})
	for _, b := range backends {
		selected := ""
		if b.Selected {
			selected = "*"
		}
		t.AppendRow(table.Row{titleCaser.String(b.Capability), b.Name, selected})
	}
	t.Render()
	return nil
}
