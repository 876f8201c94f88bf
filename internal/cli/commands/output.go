package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapbind/pkg/bind"
)

// Output formats accepted by --output.
const (
	FormatAuto  = "auto"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatAuto, FormatTable, FormatJSON, FormatYAML}

// resolveFormat turns auto into table on a terminal and json otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	switch format {
	case "", FormatAuto:
		if isTerminal(w) {
			return FormatTable, nil
		}
		return FormatJSON, nil
	case FormatTable, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want %s)", format, strings.Join(Formats, ", "))
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

// renderSnapshot prints the properties of an observable.
func renderSnapshot(w io.Writer, format string, snapshot map[string]any) error {
	format, err := resolveFormat(format, w)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		return renderJSON(w, snapshot)
	case FormatYAML:
		return renderYAML(w, snapshot)
	}

	flat := make(map[string]string)
	flatten("", snapshot, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w, table.Row{"Property", "Value"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, flat[k]})
	}
	t.Render()
	return nil
}

// flatten turns nested maps and slices into dotted and indexed keys.
func flatten(prefix string, v any, out map[string]string) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 && prefix != "" {
			out[prefix] = "{}"
		}
		for k, e := range x {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, e, out)
		}
	case []any:
		if len(x) == 0 {
			out[prefix] = "[]"
		}
		for i, e := range x {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), e, out)
		}
	default:
		out[prefix] = bind.StringValue(v)
	}
}
