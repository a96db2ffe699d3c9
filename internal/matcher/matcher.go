// Package matcher resolves key tokens into actions one keypress at a time.
//
// The matcher is Idle while its buffer is empty and Matching otherwise.
// A sequence that is bound and also the prefix of a longer binding is
// held until either another token arrives or the caller reports that the
// idle timeout elapsed (Expire). The matcher never starts timers itself;
// the caller schedules them and passes back the generation it was given.
package matcher

import (
	"time"

	"trooper/internal/keymap"
)

// DefaultTimeout is the idle wait used for ambiguous sequences.
const DefaultTimeout = time.Second

// Kind is the outcome of feeding one token.
type Kind int

const (
	// Pending means the buffer is a prefix of at least one binding.
	Pending Kind = iota
	// Resolved means Action was selected and the buffer was cleared.
	Resolved
	// NoMatch means no binding starts with the buffer. The buffer was dropped.
	NoMatch
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "Pending"
	case Resolved:
		return "Resolved"
	case NoMatch:
		return "NoMatch"
	}
	return "Kind(?)"
}

// Result reports what a token (or an expiry) did.
type Result struct {
	Kind   Kind
	Action keymap.Action
	// AwaitTimeout is set on Pending results whose buffer is itself bound.
	// Action then holds what Expire would resolve to.
	AwaitTimeout bool
	// Generation identifies this pending state for Expire.
	Generation uint64
}

// Matcher is not safe for concurrent use.
type Matcher struct {
	table   *keymap.Table
	timeout time.Duration
	node    *keymap.Node
	buffer  keymap.Sequence
	gen     uint64
}

// New creates a matcher over table. A non-positive timeout selects DefaultTimeout.
func New(table *keymap.Table, timeout time.Duration) *Matcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Matcher{table: table, timeout: timeout}
}

// Feed consumes one token.
func (m *Matcher) Feed(tok keymap.Token) Result {
	cur := m.node
	if cur == nil {
		cur = m.table.Root()
	}

	next := cur.Next(tok)
	if next == nil {
		m.Reset()
		return Result{Kind: NoMatch}
	}

	action, bound := next.Action()
	if bound && !next.HasContinuation() {
		m.Reset()
		return Result{Kind: Resolved, Action: action}
	}

	m.node = next
	m.buffer = append(m.buffer, tok)
	m.gen++
	res := Result{Kind: Pending, Generation: m.gen}
	if bound {
		res.AwaitTimeout = true
		res.Action = action
	}
	return res
}

// Expire tells the matcher the idle timeout for generation gen elapsed.
// It returns false when gen is stale because input moved on. A current
// ambiguous buffer resolves to its own binding; an unbound prefix is
// dropped with NoMatch.
func (m *Matcher) Expire(gen uint64) (Result, bool) {
	if m.node == nil || gen != m.gen {
		return Result{}, false
	}
	action, bound := m.node.Action()
	m.Reset()
	if !bound {
		return Result{Kind: NoMatch}, true
	}
	return Result{Kind: Resolved, Action: action}, true
}

// Reset discards any partial sequence and invalidates outstanding generations.
func (m *Matcher) Reset() {
	m.node = nil
	m.buffer = nil
	m.gen++
}

// Matching reports whether a partial sequence is buffered.
func (m *Matcher) Matching() bool {
	return m.node != nil
}

// Buffer returns the pending tokens.
func (m *Matcher) Buffer() keymap.Sequence {
	out := make(keymap.Sequence, len(m.buffer))
	copy(out, m.buffer)
	return out
}

// Timeout returns the idle wait for ambiguous sequences.
func (m *Matcher) Timeout() time.Duration {
	return m.timeout
}

// Table returns the keymap the matcher resolves against.
func (m *Matcher) Table() *keymap.Table {
	return m.table
}
