package tui

import (
	"fmt"
	"strings"

	"trooper/internal/fsops"
	"trooper/internal/keymap"
	"trooper/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const (
	sizeWidth      = 8
	bookmarksWidth = 32
)

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch {
	case m.showHelp:
		body = m.helpView
	case m.showBookmarks:
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderEntries(m.listWidth()-bookmarksWidth-4), m.renderBookmarks())
	default:
		body = m.renderEntries(m.listWidth())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render(truncateLeft(m.state.Dir, m.listWidth())),
		body,
		m.renderStatus(),
	)
}

func (m *Model) listWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// listHeight is the number of entry rows that fit; zero means all.
func (m *Model) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	return max(m.height-2, 1)
}

func (m *Model) renderEntries(width int) string {
	entries := m.state.Entries
	if len(entries) == 0 {
		return m.styles.Hidden.Render("  (empty)")
	}

	start, end := 0, len(entries)
	if h := m.listHeight(); h > 0 && len(entries) > h {
		if m.state.Selected >= h {
			start = m.state.Selected - h + 1
		}
		end = start + h
	}

	marked := make(map[string]bool, len(m.register.Entries))
	for _, p := range m.register.Entries {
		marked[p] = true
	}

	nameWidth := max(width-sizeWidth-4, 8)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderEntry(entries[i], i == m.state.Selected, marked[entries[i].Path], nameWidth))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderEntry(e fsops.Entry, selected, marked bool, nameWidth int) string {
	mark := " "
	if marked {
		mark = registerMark(m.register.Mode)
	}
	name := e.Name
	if e.IsDir {
		name += "/"
	}
	name = runewidth.FillRight(runewidth.Truncate(name, nameWidth, "…"), nameWidth)

	size := ""
	if !e.IsDir {
		size = humanSize(e.Size)
	}
	line := fmt.Sprintf("%s %s %*s", mark, name, sizeWidth, size)

	style := m.styles.File
	switch {
	case selected:
		style = m.styles.Selected
	case e.Symlink:
		style = m.styles.Symlink
	case e.IsDir:
		style = m.styles.Directory
	case e.Hidden:
		style = m.styles.Hidden
	}
	return style.Render(line)
}

func registerMark(mode store.Mode) string {
	if mode == store.Cut {
		return "x"
	}
	return "y"
}

func (m *Model) renderBookmarks() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Bookmarks"))
	if len(m.bookmarks) == 0 {
		sb.WriteString("\n" + m.styles.Hidden.Render("(none)"))
	}
	for i, b := range m.bookmarks {
		path := truncateLeft(b.Path, bookmarksWidth-6)
		if m.bookmarkFocus && i == m.bookmarkIndex {
			sb.WriteString("\n" + m.styles.Selected.Render(string(b.Key)+" "+path))
			continue
		}
		sb.WriteString("\n" + m.styles.PanelKey.Render(string(b.Key)) + " " + path)
	}
	return m.styles.Panel.Width(bookmarksWidth).Render(sb.String())
}

func (m *Model) renderStatus() string {
	switch m.mode {
	case promptMode:
		return m.input.View()
	case awaitKeyMode:
		return m.styles.Prompt.Render(m.awaitPrompt())
	}

	var parts []string
	if m.matcher.Matching() {
		parts = append(parts, m.styles.Pending.Render(m.matcher.Buffer().String()))
	}
	if !m.register.Empty() {
		parts = append(parts, m.styles.Status.Render(fmt.Sprintf("[%s %d]", m.register.Mode, len(m.register.Entries))))
	}
	if len(m.state.Entries) > 0 {
		parts = append(parts, m.styles.Status.Render(fmt.Sprintf("%d/%d", m.state.Selected+1, len(m.state.Entries))))
	}
	switch {
	case m.err != nil:
		parts = append(parts, m.styles.Error.Render(m.err.Error()))
	case m.status != "":
		parts = append(parts, m.styles.Success.Render(m.status))
	}
	return truncate.StringWithTail(strings.Join(parts, "  "), uint(m.listWidth()), "…")
}

func (m *Model) awaitPrompt() string {
	switch m.pending {
	case keymap.CreateBookmark:
		return "bookmark key: "
	case keymap.JumpBookmark:
		return "jump to bookmark: "
	case keymap.DeleteBookmark:
		return "delete bookmark: "
	case keymap.Delete:
		if cur, ok := m.state.Current(); ok {
			return fmt.Sprintf("delete %s? (y/n) ", cur.Name)
		}
	}
	return ""
}

// truncateLeft keeps the end of s, which matters most for paths.
func truncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && runewidth.StringWidth(string(runes))+1 > width {
		runes = runes[1:]
	}
	return "…" + string(runes)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}
