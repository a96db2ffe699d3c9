package tui

import (
	"fmt"
	"strings"

	"trooper/internal/keymap"

	"github.com/charmbracelet/glamour"
)

// glamourStyles maps theme names onto glamour's standard styles. The
// default theme follows the terminal background.
var glamourStyles = map[string]string{
	"dark":       "dark",
	"light":      "light",
	"monochrome": "notty",
}

// helpStyle picks the glamour style for theme.
func helpStyle(theme string, lightBackground bool) string {
	if style, ok := glamourStyles[theme]; ok {
		return style
	}
	if lightBackground {
		return "light"
	}
	return "dark"
}

// noMarginStyle removes the document margins glamour adds.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// helpMarkdown describes the active bindings and the command line.
func helpMarkdown(table *keymap.Table) string {
	var sb strings.Builder
	sb.WriteString("# Keys\n\n")
	sb.WriteString("| Keys | Action | Description |\n")
	sb.WriteString("|------|--------|-------------|\n")
	for _, a := range keymap.Actions() {
		seqs := table.SequencesFor(a)
		if len(seqs) == 0 {
			continue
		}
		spelled := make([]string, len(seqs))
		for i, s := range seqs {
			spelled[i] = codeSpan(s.String())
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", strings.Join(spelled, " "), a, a.Description())
	}

	sb.WriteString("\n# Commands\n\n")
	for _, c := range commands {
		usage := strings.Join(c.names, ", ")
		if c.arg != "" {
			usage += " <" + c.arg + ">"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", codeSpan(":"+usage), c.help)
	}
	sb.WriteString("\nPress `?` again to close.\n")
	return sb.String()
}

// codeSpan renders s as inline code that survives a table cell.
func codeSpan(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	if strings.Contains(s, "`") {
		return "`` " + s + " ``"
	}
	return "`" + s + "`"
}

// renderHelp renders the help text with a glamour style at width. The raw
// markdown is returned if glamour fails.
func renderHelp(table *keymap.Table, style string, width int) string {
	md := helpMarkdown(table)
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
