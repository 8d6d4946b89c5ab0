package redaction

import (
	"time"

	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/session"
)

// Stats counts the session's tokens, computed from the live map.
func (e *Engine) Stats(sessionID string) session.Stats {
	m, ok := e.store.Get(sessionID)
	if !ok {
		return session.Stats{ByKind: map[privacy.Kind]int{}}
	}
	return m.Stats()
}

// ExportMap returns a copy of the session's token → original value mapping.
// The result contains raw PII; callers control who may see it.
func (e *Engine) ExportMap(sessionID string) map[string]string {
	m, ok := e.store.Get(sessionID)
	if !ok {
		return map[string]string{}
	}
	return m.Snapshot()
}

// Export is the audit envelope around a session's mapping.
type Export struct {
	SessionID  string            `json:"session_id"`
	Mappings   map[string]string `json:"mappings"`
	Stats      session.Stats     `json:"stats"`
	ExportedAt time.Time         `json:"exported_at"`
}

// Export bundles ExportMap and Stats.
func (e *Engine) Export(sessionID string) Export {
	return Export{
		SessionID:  sessionID,
		Mappings:   e.ExportMap(sessionID),
		Stats:      e.Stats(sessionID),
		ExportedAt: time.Now().UTC(),
	}
}
