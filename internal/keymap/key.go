package keymap

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Named special keys. A Token carries either a Rune or one of these names.
const (
	KeySpace     = "Space"
	KeyTab       = "Tab"
	KeyEnter     = "Enter"
	KeyEsc       = "Esc"
	KeyBackspace = "Backspace"
	KeyUp        = "Up"
	KeyDown      = "Down"
	KeyLeft      = "Left"
	KeyRight     = "Right"
	KeyDelete    = "Del"
	KeyHome      = "Home"
	KeyEnd       = "End"
	KeyPageUp    = "PageUp"
	KeyPageDown  = "PageDown"
)

// notation maps each named key to the spelling String produces.
var notation = map[string]string{
	KeySpace:     "Space",
	KeyTab:       "Tab",
	KeyEnter:     "CR",
	KeyEsc:       "Esc",
	KeyBackspace: "BS",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyDelete:    "Del",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
}

// aliases maps lower-cased escape names to named keys.
var aliases = map[string]string{
	"space":     KeySpace,
	"tab":       KeyTab,
	"cr":        KeyEnter,
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"esc":       KeyEsc,
	"escape":    KeyEsc,
	"bs":        KeyBackspace,
	"backspace": KeyBackspace,
	"up":        KeyUp,
	"down":      KeyDown,
	"left":      KeyLeft,
	"right":     KeyRight,
	"del":       KeyDelete,
	"delete":    KeyDelete,
	"home":      KeyHome,
	"end":       KeyEnd,
	"pageup":    KeyPageUp,
	"pgup":      KeyPageUp,
	"pagedown":  KeyPageDown,
	"pgdn":      KeyPageDown,
}

// runeAliases are escapes that stand for a printable character.
var runeAliases = map[string]rune{
	"lt":     '<',
	"gt":     '>',
	"bar":    '|',
	"bslash": '\\',
}

// ctrlSynonyms are Ctrl chords that terminals deliver as named keys.
var ctrlSynonyms = map[rune]string{
	'i': KeyTab,
	'm': KeyEnter,
	'[': KeyEsc,
}

// Token is one logical keypress. Tokens are comparable and usable as map keys.
type Token struct {
	Rune rune   // printable character, zero for named keys
	Name string // named special key, empty for characters
	Ctrl bool
	Alt  bool
}

// Char returns the token for a plain printable character.
// A space becomes the named Space key so both spellings compare equal.
func Char(r rune) Token {
	if r == ' ' {
		return Token{Name: KeySpace}
	}
	return Token{Rune: r}
}

// Named returns the token for a named special key.
func Named(name string) Token {
	return Token{Name: name}
}

// Ctrl returns the Ctrl chord of t. Ctrl letters are case-insensitive
// and always stored lower case.
func Ctrl(t Token) Token {
	t.Ctrl = true
	t.Rune = unicode.ToLower(t.Rune)
	return t
}

// String renders t in the escape notation accepted by ParseSequence.
func (t Token) String() string {
	var base string
	if t.Name != "" {
		base = notation[t.Name]
		if base == "" {
			base = t.Name
		}
	} else {
		switch t.Rune {
		case '<':
			base = "lt"
		case '>':
			base = "gt"
		default:
			base = string(t.Rune)
		}
	}

	if !t.Ctrl && !t.Alt {
		if t.Name == "" && t.Rune != '<' && t.Rune != '>' {
			return base
		}
		return "<" + base + ">"
	}

	var sb strings.Builder
	sb.WriteByte('<')
	if t.Ctrl {
		sb.WriteString("C-")
	}
	if t.Alt {
		sb.WriteString("A-")
	}
	sb.WriteString(base)
	sb.WriteByte('>')
	return sb.String()
}

// Sequence is an ordered list of tokens bound to one action.
type Sequence []Token

// String renders the sequence in canonical escape notation.
func (s Sequence) String() string {
	var sb strings.Builder
	for _, t := range s {
		sb.WriteString(t.String())
	}
	return sb.String()
}

// Equals reports whether s and other contain the same tokens.
func (s Sequence) Equals(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a prefix of s.
func (s Sequence) HasPrefix(prefix Sequence) bool {
	if len(prefix) > len(s) {
		return false
	}
	return Sequence(s[:len(prefix)]).Equals(prefix)
}

// ParseSequence parses escape notation such as "gg", "<C-w>j" or "<lt><Space>".
// Escape names are case-insensitive. A '<' that does not open a valid
// escape is an error; a lone '>' is the literal character.
func ParseSequence(text string) (Sequence, error) {
	if text == "" {
		return nil, fmt.Errorf("empty key sequence")
	}

	var seq Sequence
	for i := 0; i < len(text); {
		if text[i] == '<' {
			end := strings.IndexByte(text[i+1:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated escape at offset %d", i)
			}
			inner := text[i+1 : i+1+end]
			tok, err := parseEscape(inner)
			if err != nil {
				return nil, fmt.Errorf("escape <%s>: %w", inner, err)
			}
			seq = append(seq, tok)
			i += end + 2
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size <= 1 {
			return nil, fmt.Errorf("invalid UTF-8 at offset %d", i)
		}
		switch {
		case r == '\t':
			seq = append(seq, Named(KeyTab))
		case r == ' ':
			seq = append(seq, Named(KeySpace))
		case !unicode.IsPrint(r):
			return nil, fmt.Errorf("unprintable character %q at offset %d", r, i)
		default:
			seq = append(seq, Char(r))
		}
		i += size
	}
	return seq, nil
}

// MustParseSequence is ParseSequence for known-valid literals.
func MustParseSequence(text string) Sequence {
	seq, err := ParseSequence(text)
	if err != nil {
		panic("invalid key sequence " + text + ": " + err.Error())
	}
	return seq
}

func parseEscape(inner string) (Token, error) {
	if inner == "" {
		return Token{}, fmt.Errorf("empty escape")
	}

	var ctrl, alt bool
	for len(inner) > 2 && inner[1] == '-' {
		switch unicode.ToLower(rune(inner[0])) {
		case 'c':
			ctrl = true
		case 'a', 'm':
			alt = true
		default:
			return Token{}, fmt.Errorf("unknown modifier %q", inner[:1])
		}
		inner = inner[2:]
	}

	var tok Token
	lower := strings.ToLower(inner)
	if name, ok := aliases[lower]; ok {
		tok = Named(name)
	} else if r, ok := runeAliases[lower]; ok {
		tok = Token{Rune: r}
	} else if r, size := utf8.DecodeRuneInString(inner); size == len(inner) && (ctrl || alt) && unicode.IsPrint(r) && r != ' ' {
		tok = Token{Rune: r}
	} else {
		return Token{}, fmt.Errorf("unknown key name")
	}

	tok.Alt = alt
	if ctrl {
		tok = Ctrl(tok)
		if name, ok := ctrlSynonyms[tok.Rune]; ok && tok.Name == "" {
			tok = Token{Name: name, Alt: alt}
		}
	}
	return tok, nil
}
