package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapbind/internal/config"
)

// quickStart walks through the three ways leapbind moves a contact around.
var quickStart = []struct {
	title, body string
}{
	{"Bind a contact to the browser", "leapbind serve --data contact.json --watch"},
	{"Load a contact over HTTP", "leapbind fetch https://example.com/people/1 -o yaml"},
	{"Follow a live feed", "leapbind ws wss://example.com/feed"},
}

// generateCLIDocs writes index.md plus one page per top level command of root.
func generateCLIDocs(root *cobra.Command, outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pages := map[string][]byte{"index.md": cliIndex(root)}
	for _, cmd := range documented(root) {
		pages[cmd.Name()+".md"] = commandPage(root, cmd)
	}

	for name, data := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// documented returns the subcommands that get a page.
func documented(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || !sub.IsAvailableCommand() || sub.Name() == "help" {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", root.Short)
	w.GeneratedMarker()

	w.Header(1, root.Name())
	w.Paragraph(root.Long)

	w.Header(2, "Quick start")
	for _, step := range quickStart {
		w.Paragraph(step.title + ":")
		w.CodeBlock("bash", step.body)
	}

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Shared flags")
	w.Paragraph("Every command accepts these. Flags override the matching environment variable, which overrides " +
		InlineCode(config.ConfigFileName) + ".")
	flagTable(w, root.PersistentFlags())

	w.Header(2, "Exit status")
	w.BulletList([]string{
		InlineCode("0") + " when the command finished",
		InlineCode("1") + " on any error; the reason is printed to stderr",
	})

	return w.Bytes()
}

func commandPage(root, cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, root.Name()+" "+cmd.Name())
	about := cmd.Long
	if about == "" {
		about = cmd.Short
	}
	w.Paragraph(about)

	w.CodeBlock("bash", synopsis(root, cmd))

	if subs := documented(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		var items []string
		for _, sub := range subs {
			items = append(items, InlineCode(sub.Name())+": "+cleanDescription(sub.Short))
		}
		w.BulletList(items)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Flags")
		flagTable(w, cmd.LocalFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	w.Paragraph("Shared flags are listed in the [CLI reference](index.md#shared-flags).")
	return w.Bytes()
}

func synopsis(root, cmd *cobra.Command) string {
	if cmd.HasAvailableSubCommands() {
		return fmt.Sprintf("%s %s <subcommand> [flags]", root.Name(), cmd.Name())
	}
	line := cmd.UseLine()
	if !strings.HasPrefix(line, root.Name()) {
		line = root.Name() + " " + line
	}
	return line
}

// flagTable lists visible flags with their defaults and, where one exists,
// the config key they set.
func flagTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name += ", " + InlineCode("-"+f.Shorthand)
		}

		def := ""
		if f.DefValue != "" && f.DefValue != "0" && f.DefValue != "false" {
			def = InlineCode(f.DefValue)
		}

		key := ""
		if k := config.KeyForFlag(f.Name); k != "" {
			key = InlineCode(k)
		}

		rows = append(rows, []string{name, def, key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Config key", "Description"}, rows)
}

// dedent strips the indentation shared by every non-blank line.
func dedent(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first || !strings.HasPrefix(indent, prefix) {
			prefix = commonPrefix(prefix, indent, first)
			first = false
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func commonPrefix(a, b string, first bool) string {
	if first {
		return b
	}
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}
