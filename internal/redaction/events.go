package redaction

import (
	"time"

	"github.com/raaihank/llm-redactor/internal/privacy"
)

// EventType identifies what happened to a session map.
type EventType string

const (
	EventRedaction        EventType = "redaction"
	EventSessionDestroyed EventType = "session_destroyed"
)

// Event carries token names and counts only, never original values.
type Event struct {
	Type         EventType            `json:"type"`
	SessionID    string               `json:"session_id"`
	Timestamp    time.Time            `json:"timestamp"`
	NewTokens    int                  `json:"new_tokens,omitempty"`
	ReusedTokens int                  `json:"reused_tokens,omitempty"`
	Tokens       []string             `json:"tokens,omitempty"`
	ByKind       map[privacy.Kind]int `json:"by_kind,omitempty"`
}

// Listener receives engine events.
type Listener func(Event)
