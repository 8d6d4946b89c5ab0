// Package redaction substitutes detected PII with per-session tokens and
// reverses the substitution later.
//
// An Engine is built explicitly from a Detector and a session Store; it has
// no package-level state. Redact grows the session's map, Restore, Stats and
// ExportMap only read it. None of the operations fail: empty input and
// unknown sessions yield empty results.
package redaction

import (
	"time"

	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/session"
	"go.uber.org/zap"
)

// Engine ties the detector to the session maps.
type Engine struct {
	detector  *privacy.Detector
	store     session.Store
	logger    *logger.Logger
	listeners []Listener
	skipKeys  map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithListener registers a callback invoked after every redaction and
// session teardown. Listeners must not block.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithSkipKeys replaces the set of object keys RedactValue leaves untouched.
func WithSkipKeys(keys ...string) Option {
	return func(e *Engine) {
		e.skipKeys = make(map[string]bool, len(keys))
		for _, k := range keys {
			e.skipKeys[k] = true
		}
	}
}

// New creates an engine. The store is owned by the caller.
func New(detector *privacy.Detector, store session.Store, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		detector: detector,
		store:    store,
		logger:   log,
		skipKeys: defaultSkipKeys(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TokenRef describes one token touched by a redaction call.
type TokenRef struct {
	Token  string       `json:"token"`
	Kind   privacy.Kind `json:"kind"`
	Value  string       `json:"-"`
	Length int          `json:"length"`
	New    bool         `json:"new"`
}

// Result is the outcome of Redact.
type Result struct {
	Text   string     `json:"redacted_text"`
	Tokens []TokenRef `json:"tokens"`
}

// Redact replaces every detected span of text with its session token,
// allocating tokens for values the session has not seen before. Placeholder
// text already in the input is left alone and its token is never issued to
// a real value, so restoring leaves it as written.
func (e *Engine) Redact(sessionID, text string) Result {
	if text == "" {
		return Result{Text: text, Tokens: []TokenRef{}}
	}

	spans := e.detector.Detect(text)
	literals := placeholderLiterals(text)
	if len(spans) == 0 && len(literals) == 0 {
		return Result{Text: text, Tokens: []TokenRef{}}
	}

	reqs := make([]session.Request, len(spans))
	for i, s := range spans {
		reqs[i] = session.Request{Kind: s.Kind, Value: s.Text}
	}

	var resolved []session.Resolution
	for resolved == nil {
		// A map torn down after GetOrCreate returns ErrClosed; retry on a fresh one.
		res, err := e.store.GetOrCreate(sessionID).ResolveAll(reqs, literals)
		if err == nil {
			resolved = res
		}
	}

	if len(spans) == 0 {
		return Result{Text: text, Tokens: []TokenRef{}}
	}

	// Right to left so earlier offsets stay valid as lengths change.
	out := text
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		out = out[:s.Start] + privacy.Placeholder(resolved[i].Token) + out[s.End:]
	}

	result := Result{Text: out, Tokens: touched(resolved)}
	e.report(sessionID, result.Tokens)
	return result
}

func placeholderLiterals(text string) []string {
	matches := privacy.PlaceholderPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, ph := range matches {
		out[i] = ph[1 : len(ph)-1]
	}
	return out
}

// touched lists each distinct token once, in order of first appearance.
func touched(resolved []session.Resolution) []TokenRef {
	seen := make(map[string]int, len(resolved))
	refs := make([]TokenRef, 0, len(resolved))
	for _, r := range resolved {
		if idx, ok := seen[r.Token]; ok {
			refs[idx].New = refs[idx].New || r.Created
			continue
		}
		seen[r.Token] = len(refs)
		refs = append(refs, TokenRef{
			Token:  r.Token,
			Kind:   r.Kind,
			Value:  r.Value,
			Length: len(r.Value),
			New:    r.Created,
		})
	}
	return refs
}

func (e *Engine) report(sessionID string, refs []TokenRef) {
	ev := Event{
		Type:      EventRedaction,
		SessionID: sessionID,
		Timestamp: time.Now(),
		ByKind:    make(map[privacy.Kind]int),
	}
	for _, r := range refs {
		ev.Tokens = append(ev.Tokens, r.Token)
		ev.ByKind[r.Kind]++
		if r.New {
			ev.NewTokens++
		} else {
			ev.ReusedTokens++
		}
	}

	e.logger.Debug("PII redacted",
		zap.String("session_id", sessionID),
		zap.Int("new_tokens", ev.NewTokens),
		zap.Int("reused_tokens", ev.ReusedTokens),
		zap.Strings("tokens", ev.Tokens),
	)

	e.emit(ev)
}

func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l(ev)
	}
}

// DestroySession discards the session's map. It is driven by the external
// session lifecycle and returns the map's final stats, reporting whether a
// map existed.
func (e *Engine) DestroySession(sessionID string) (session.Stats, bool) {
	stats, existed := e.store.Delete(sessionID)
	if !existed {
		return session.Stats{ByKind: map[privacy.Kind]int{}}, false
	}

	e.logger.Info("Session redaction map destroyed",
		zap.String("session_id", sessionID),
		zap.Int("tokens", stats.Total),
	)
	e.emit(Event{
		Type:      EventSessionDestroyed,
		SessionID: sessionID,
		Timestamp: time.Now(),
		ByKind:    stats.ByKind,
	})
	return stats, true
}

// Sessions returns the number of live session maps.
func (e *Engine) Sessions() int {
	return e.store.Len()
}

// Detector returns the detector the engine redacts with.
func (e *Engine) Detector() *privacy.Detector {
	return e.detector
}
