package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"trooper/internal/keymap"
	"trooper/internal/navigator"
)

// command is one entry of the command line vocabulary.
type command struct {
	names []string
	// arg names the required argument, empty when none is taken.
	arg    string
	action keymap.Action
	help   string
}

var commands = []command{
	{names: []string{"mkdir"}, arg: "name", action: keymap.CreateDir, help: "create a directory"},
	{names: []string{"rename", "mv"}, arg: "name", action: keymap.Rename, help: "rename the selected entry"},
	{names: []string{"bookmark", "bm"}, arg: "key", action: keymap.CreateBookmark, help: "bookmark the current directory"},
	{names: []string{"del_bookmark", "dbm"}, arg: "key", action: keymap.DeleteBookmark, help: "delete a bookmark"},
	{names: []string{"jump"}, arg: "key", action: keymap.JumpBookmark, help: "go to a bookmark"},
	{names: []string{"cd"}, arg: "dir", action: keymap.Nop, help: "change directory"},
	{names: []string{"delete"}, action: keymap.Delete, help: "delete the selected entry"},
	{names: []string{"paste"}, action: keymap.Paste, help: "paste the register here"},
	{names: []string{"hidden"}, action: keymap.ToggleHidden, help: "toggle hidden entries"},
	{names: []string{"refresh"}, action: keymap.Refresh, help: "re-read the directory"},
	{names: []string{"quit", "q"}, action: keymap.Quit, help: "quit"},
}

var commandIndex = func() map[string]command {
	idx := make(map[string]command)
	for _, c := range commands {
		for _, n := range c.names {
			idx[n] = c
		}
	}
	return idx
}()

// parsedCommand is a command line resolved to a navigator request. Dir is
// set instead for "cd".
type parsedCommand struct {
	Request navigator.Request
	Dir     string
}

// parseCommand parses "name [argument]". The argument is the rest of the
// line so names may contain spaces.
func parseCommand(line string) (parsedCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return parsedCommand{}, fmt.Errorf("empty command")
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	c, ok := commandIndex[name]
	if !ok {
		return parsedCommand{}, fmt.Errorf("unknown command %q", name)
	}
	if c.arg == "" && arg != "" {
		return parsedCommand{}, fmt.Errorf("%s takes no argument", name)
	}
	if c.arg != "" && arg == "" {
		return parsedCommand{}, fmt.Errorf("usage: %s <%s>", name, c.arg)
	}

	req := navigator.Request{Action: c.action}
	switch c.arg {
	case "name":
		req.Name = arg
	case "key":
		if utf8.RuneCountInString(arg) != 1 {
			return parsedCommand{}, fmt.Errorf("bookmark key must be a single character, got %q", arg)
		}
		req.Key, _ = utf8.DecodeRuneInString(arg)
	case "dir":
		return parsedCommand{Request: req, Dir: arg}, nil
	}
	return parsedCommand{Request: req}, nil
}

// completeCommand completes the command name being typed. Several
// candidates complete to their longest common prefix.
func completeCommand(line string) string {
	if strings.Contains(line, " ") {
		return line
	}
	var matches []string
	for n := range commandIndex {
		if strings.HasPrefix(n, line) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return line
	case 1:
		c := commandIndex[matches[0]]
		if c.arg != "" {
			return matches[0] + " "
		}
		return matches[0]
	}
	sort.Strings(matches)
	prefix := matches[0]
	for _, m := range matches[1:] {
		for !strings.HasPrefix(m, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// history keeps submitted command lines, oldest first.
type history struct {
	lines []string
	pos   int // len(lines) when not browsing
}

func (h *history) add(line string) {
	if line == "" || (len(h.lines) > 0 && h.lines[len(h.lines)-1] == line) {
		h.pos = len(h.lines)
		return
	}
	h.lines = append(h.lines, line)
	h.pos = len(h.lines)
}

func (h *history) prev() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.lines[h.pos], true
}

// next returns the following line, or "" when leaving the history.
func (h *history) next() (string, bool) {
	if h.pos >= len(h.lines) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.lines) {
		return "", true
	}
	return h.lines[h.pos], true
}

func (h *history) reset() {
	h.pos = len(h.lines)
}
