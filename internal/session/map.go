// Package session holds the per-conversation redaction state: which token
// stands for which original value. Maps are never shared between sessions.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/raaihank/llm-redactor/internal/privacy"
)

// Entry is the original value a token stands for.
type Entry struct {
	Kind  privacy.Kind
	Value string
}

// Request asks for the token of one detected value.
type Request struct {
	Kind  privacy.Kind
	Value string
}

// Resolution is the outcome of resolving one Request.
type Resolution struct {
	Token   string
	Kind    privacy.Kind
	Value   string
	Created bool
}

// Stats summarises a session map.
type Stats struct {
	Total  int                  `json:"total"`
	ByKind map[privacy.Kind]int `json:"by_kind"`
}

// ErrClosed is returned when allocating on a map whose session was torn down.
var ErrClosed = errors.New("session map closed")

// Map is the bidirectional token state of one session. It only grows:
// there is no way to remove a token, and sequence counters never go back.
// Once closed it accepts no new tokens.
type Map struct {
	mu        sync.RWMutex
	id        string
	createdAt time.Time
	forward   map[string]Entry     // token → original
	reverse   map[Entry]string     // (kind, original) → token
	counters  map[privacy.Kind]int // last sequence number issued per kind
	reserved  map[string]bool      // placeholder literals seen in input, never issued
	closed    bool
}

// NewMap creates an empty map for session id.
func NewMap(id string) *Map {
	return &Map{
		id:        id,
		createdAt: time.Now().UTC(),
		forward:   make(map[string]Entry),
		reverse:   make(map[Entry]string),
		counters:  make(map[privacy.Kind]int),
		reserved:  make(map[string]bool),
	}
}

// ID returns the owning session identifier.
func (m *Map) ID() string {
	return m.id
}

// CreatedAt returns when the map was created.
func (m *Map) CreatedAt() time.Time {
	return m.createdAt
}

// ResolveToken returns the token for (kind, value), allocating the next
// sequence number for kind when the pair is new. Matching is exact and
// case-sensitive.
func (m *Map) ResolveToken(kind privacy.Kind, value string) (Resolution, error) {
	res, err := m.ResolveAll([]Request{{Kind: kind, Value: value}}, nil)
	if err != nil {
		return Resolution{}, err
	}
	return res[0], nil
}

// ResolveAll resolves every request inside a single critical section so
// that a whole redaction call observes and allocates a consistent sequence.
// Tokens listed in reserve that the map has not issued are withheld from
// allocation, so placeholder text already present in the input never
// collides with a real token.
func (m *Map) ResolveAll(reqs []Request, reserve []string) ([]Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	for _, tok := range reserve {
		if _, issued := m.forward[tok]; !issued {
			m.reserved[tok] = true
		}
	}

	out := make([]Resolution, len(reqs))
	for i, r := range reqs {
		tok, created := m.resolveLocked(r.Kind, r.Value)
		out[i] = Resolution{Token: tok, Kind: r.Kind, Value: r.Value, Created: created}
	}
	return out, nil
}

func (m *Map) resolveLocked(kind privacy.Kind, value string) (string, bool) {
	key := Entry{Kind: kind, Value: value}
	if tok, ok := m.reverse[key]; ok {
		return tok, false
	}

	var tok string
	for {
		m.counters[kind]++
		tok = privacy.FormatToken(kind, m.counters[kind])
		if !m.reserved[tok] {
			break
		}
	}
	m.forward[tok] = key
	m.reverse[key] = tok
	return tok, true
}

// close marks the map closed and returns its final stats.
func (m *Map) close() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.statsLocked()
}

// Lookup returns the original value behind token.
func (m *Map) Lookup(token string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.forward[token]
	return e, ok
}

// Len returns the number of tokens allocated.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.forward)
}

// Snapshot copies the token → original value mapping.
func (m *Map) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.forward))
	for tok, e := range m.forward {
		out[tok] = e.Value
	}
	return out
}

// Tokens returns every allocated token, sorted.
func (m *Map) Tokens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	toks := make([]string, 0, len(m.forward))
	for t := range m.forward {
		toks = append(toks, t)
	}
	sort.Strings(toks)
	return toks
}

// Stats counts tokens in total and per kind.
func (m *Map) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *Map) statsLocked() Stats {
	s := Stats{Total: len(m.forward), ByKind: make(map[privacy.Kind]int)}
	for _, e := range m.forward {
		s.ByKind[e.Kind]++
	}
	return s
}
