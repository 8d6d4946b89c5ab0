package redaction

import "github.com/raaihank/llm-redactor/internal/privacy"

// Restore puts original values back in place of the session's tokens.
// Placeholders the session never issued (another session's tokens, or ones
// a model made up) are left exactly as they are.
func (e *Engine) Restore(sessionID, text string) string {
	if text == "" {
		return text
	}

	m, ok := e.store.Get(sessionID)
	if !ok {
		return text
	}

	return privacy.PlaceholderPattern.ReplaceAllStringFunc(text, func(ph string) string {
		if entry, ok := m.Lookup(ph[1 : len(ph)-1]); ok {
			return entry.Value
		}
		return ph
	})
}
