// Package keymap holds the key-sequence-to-action table. Tables are built
// once from the embedded defaults and an optional user INI file and are
// read-only afterwards.
package keymap

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"trooper/internal/errors"

	"gopkg.in/ini.v1"
)

// Section is the INI section that holds key bindings.
const Section = "keybindings"

//go:embed default_config.ini
var defaultConfig []byte

// Source is named INI content. Name is used in error reports.
type Source struct {
	Name string
	Data []byte
}

// DefaultSource returns the embedded default bindings.
func DefaultSource() Source {
	return Source{Name: "default_config.ini", Data: defaultConfig}
}

// Binding associates a sequence with an action. Source and Line record
// where it was declared, if it came from a file.
type Binding struct {
	Sequence Sequence
	Action   Action
	Source   string
	Line     int
}

// Node is a trie node. The root is the empty sequence.
type Node struct {
	children map[Token]*Node
	action   Action
	bound    bool
}

// Next returns the child reached by t, or nil.
func (n *Node) Next(t Token) *Node {
	if n == nil {
		return nil
	}
	return n.children[t]
}

// Action returns the action bound to the sequence ending at n.
func (n *Node) Action() (Action, bool) {
	if n == nil {
		return Nop, false
	}
	return n.action, n.bound
}

// HasContinuation reports whether a longer bound sequence extends n.
func (n *Node) HasContinuation() bool {
	return n != nil && len(n.children) > 0
}

// Table maps key sequences to actions.
type Table struct {
	root     *Node
	bindings []Binding
}

// FromBindings builds a table. Binding the same sequence twice is a
// DuplicateBinding error.
func FromBindings(bindings []Binding) (*Table, error) {
	t := &Table{root: &Node{}}
	for _, b := range bindings {
		if err := t.insert(b); err != nil {
			return nil, err
		}
	}
	t.sortBindings()
	return t, nil
}

func (t *Table) insert(b Binding) error {
	if len(b.Sequence) == 0 {
		return errors.NewConfigError("malformed key sequence", "", errors.MalformedSequence, nil).At(b.Source, b.Line)
	}
	n := t.root
	for _, tok := range b.Sequence {
		next := n.children[tok]
		if next == nil {
			next = &Node{}
			if n.children == nil {
				n.children = make(map[Token]*Node)
			}
			n.children[tok] = next
		}
		n = next
	}
	if n.bound {
		return errors.NewConfigError("duplicate binding", b.Sequence.String(), errors.DuplicateBinding, nil).At(b.Source, b.Line)
	}
	n.bound = true
	n.action = b.Action
	t.bindings = append(t.bindings, b)
	return nil
}

func (t *Table) sortBindings() {
	sort.SliceStable(t.bindings, func(i, j int) bool {
		if t.bindings[i].Action != t.bindings[j].Action {
			return t.bindings[i].Action < t.bindings[j].Action
		}
		return t.bindings[i].Sequence.String() < t.bindings[j].Sequence.String()
	})
}

// Root returns the trie root for incremental matching.
func (t *Table) Root() *Node {
	return t.root
}

// Lookup returns the action bound to exactly seq.
func (t *Table) Lookup(seq Sequence) (Action, bool) {
	n := t.root
	for _, tok := range seq {
		if n = n.Next(tok); n == nil {
			return Nop, false
		}
	}
	return n.Action()
}

// Bindings returns all bindings ordered by action, then sequence.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// SequencesFor lists the sequences bound to a.
func (t *Table) SequencesFor(a Action) []Sequence {
	var out []Sequence
	for _, b := range t.bindings {
		if b.Action == a {
			out = append(out, b.Sequence)
		}
	}
	return out
}

// Len returns the number of bound sequences.
func (t *Table) Len() int {
	return len(t.bindings)
}

// Load builds a table from the default source with user bindings merged
// on top. A user binding replaces the default for the same sequence and
// Nop removes it. user may be empty.
func Load(def, user Source) (*Table, error) {
	merged := make(map[string]Binding)
	var order []string

	for _, src := range []Source{def, user} {
		if len(src.Data) == 0 {
			continue
		}
		bindings, err := parseSource(src)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			key := b.Sequence.String()
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = b
		}
	}

	var final []Binding
	for _, key := range order {
		if b := merged[key]; b.Action != Nop {
			final = append(final, b)
		}
	}
	return FromBindings(final)
}

// LoadFile loads the defaults plus the user file at path. A missing user
// file is not an error.
func LoadFile(path string) (*Table, error) {
	user := Source{Name: path}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			user.Data = data
		case os.IsNotExist(err):
		default:
			return nil, errors.NewConfigError("cannot read keymap", path, errors.InvalidConfig, err).At(path, 0)
		}
	}
	return Load(DefaultSource(), user)
}

// parseSource reads the [keybindings] section of src. ini.v1 does not
// report line numbers, so entries are located with a raw scan of the
// same bytes; the scan also catches keys repeated verbatim, which the
// INI reader silently collapses.
func parseSource(src Source) ([]Binding, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters: "=",
		IgnoreContinuation: true,
	}, src.Data)
	if err != nil {
		return nil, errors.NewConfigError("cannot parse keymap", "", errors.InvalidConfig, err).At(src.Name, 0)
	}
	sec, err := f.GetSection(Section)
	if err != nil {
		return nil, nil
	}

	lines := scanKeyLines(src.Data)
	firstLine := make(map[string]int)
	var out []Binding

	for _, e := range lines {
		if prev, dup := firstLine[e.key]; dup {
			return nil, errors.NewConfigError(
				fmt.Sprintf("duplicate binding (first bound on line %d)", prev), e.key, errors.DuplicateBinding, nil,
			).At(src.Name, e.line)
		}
		firstLine[e.key] = e.line
	}

	seen := make(map[string]int)
	for _, k := range sec.Keys() {
		line := firstLine[k.Name()]

		seq, err := ParseSequence(k.Name())
		if err != nil {
			return nil, errors.NewConfigError("malformed key sequence", k.Name(), errors.MalformedSequence, err).At(src.Name, line)
		}
		action, ok := ParseAction(k.String())
		if !ok {
			return nil, errors.NewConfigError("unknown action", k.String(), errors.UnknownAction, nil).At(src.Name, line)
		}

		canon := seq.String()
		if prev, dup := seen[canon]; dup {
			return nil, errors.NewConfigError(
				fmt.Sprintf("duplicate binding (first bound on line %d)", prev), k.Name(), errors.DuplicateBinding, nil,
			).At(src.Name, line)
		}
		seen[canon] = line
		out = append(out, Binding{Sequence: seq, Action: action, Source: src.Name, Line: line})
	}
	return out, nil
}

type keyLine struct {
	key  string
	line int
}

func scanKeyLines(data []byte) []keyLine {
	var out []keyLine
	inSection := false
	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "", line[0] == ';', line[0] == '#':
			continue
		case line[0] == '[' && strings.HasSuffix(line, "]"):
			inSection = strings.TrimSpace(line[1:len(line)-1]) == Section
			continue
		case !inSection:
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if len(key) >= 2 && (key[0] == '"' || key[0] == '`') && key[len(key)-1] == key[0] {
			key = key[1 : len(key)-1]
		}
		out = append(out, keyLine{key: key, line: i + 1})
	}
	return out
}
