package redaction

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
)

func defaultSkipKeys() map[string]bool {
	return map[string]bool{
		"model": true, "role": true, "temperature": true, "max_tokens": true,
		"top_p": true, "stream": true, "n": true,
	}
}

// RedactValue redacts every string leaf of a decoded JSON value in place and
// returns it. Object keys are visited in sorted order so token numbering does
// not depend on map iteration.
func (e *Engine) RedactValue(sessionID string, v any) (any, []TokenRef) {
	c := &collector{seen: make(map[string]int), refs: []TokenRef{}}
	out := e.walk(v, func(s string) string {
		r := e.Redact(sessionID, s)
		c.add(r.Tokens)
		return r.Text
	})
	return out, c.refs
}

// RedactJSON parses body as JSON and redacts its string values. Numbers keep
// their original text. A body that is not JSON is redacted as plain text.
func (e *Engine) RedactJSON(sessionID string, body []byte) ([]byte, []TokenRef, error) {
	doc, ok := decodeJSON(body)
	if !ok {
		r := e.Redact(sessionID, string(body))
		return []byte(r.Text), r.Tokens, nil
	}

	redacted, refs := e.RedactValue(sessionID, doc)
	out, err := json.Marshal(redacted)
	if err != nil {
		return nil, nil, err
	}
	return out, refs, nil
}

// RestoreValue restores every string leaf of a decoded JSON value in place.
func (e *Engine) RestoreValue(sessionID string, v any) any {
	return e.walk(v, func(s string) string {
		return e.Restore(sessionID, s)
	})
}

// RestoreJSON is the inverse of RedactJSON.
func (e *Engine) RestoreJSON(sessionID string, body []byte) ([]byte, error) {
	doc, ok := decodeJSON(body)
	if !ok {
		return []byte(e.Restore(sessionID, string(body))), nil
	}
	return json.Marshal(e.RestoreValue(sessionID, doc))
}

// decodeJSON decodes a single JSON document, keeping numbers as json.Number.
func decodeJSON(body []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return doc, true
}

func (e *Engine) walk(v any, fn func(string) string) any {
	switch val := v.(type) {
	case string:
		return fn(val)
	case []any:
		for i, item := range val {
			val[i] = e.walk(item, fn)
		}
		return val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			if !e.skipKeys[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			val[k] = e.walk(val[k], fn)
		}
		return val
	}
	return v
}

type collector struct {
	seen map[string]int
	refs []TokenRef
}

func (c *collector) add(refs []TokenRef) {
	for _, r := range refs {
		if idx, ok := c.seen[r.Token]; ok {
			c.refs[idx].New = c.refs[idx].New || r.New
			continue
		}
		c.seen[r.Token] = len(c.refs)
		c.refs = append(c.refs, r)
	}
}
