// Package lifecycle tears down session redaction maps when the owning
// conversation ends. Signals arrive over a Redis pub/sub channel published by
// the session manager.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/session"
)

// EventType is the kind of lifecycle signal.
type EventType string

const (
	EventCreated   EventType = "created"
	EventDestroyed EventType = "destroyed"
	EventExpired   EventType = "expired"
)

// ErrInvalidEvent is returned for payloads that cannot be acted on.
var ErrInvalidEvent = errors.New("invalid lifecycle event")

// Event is the wire format of a lifecycle signal.
type Event struct {
	Type      EventType `json:"event"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// DecodeEvent parses and validates a lifecycle payload.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch ev.Type {
	case EventCreated, EventDestroyed, EventExpired:
	default:
		return Event{}, fmt.Errorf("%w: unknown event %q", ErrInvalidEvent, ev.Type)
	}
	if ev.SessionID == "" {
		return Event{}, fmt.Errorf("%w: missing session_id", ErrInvalidEvent)
	}
	return ev, nil
}

// Engine is the part of the redaction engine the manager drives.
type Engine interface {
	DestroySession(sessionID string) (session.Stats, bool)
}

// Recorder persists a record of each teardown. Implementations must not
// store original values.
type Recorder interface {
	RecordTeardown(ctx context.Context, sessionID string, stats session.Stats) error
}

// Manager applies lifecycle signals to the engine.
type Manager struct {
	engine   Engine
	recorder Recorder
	logger   *logger.Logger
}

// NewManager creates a manager. recorder may be nil.
func NewManager(engine Engine, recorder Recorder, log *logger.Logger) *Manager {
	return &Manager{engine: engine, recorder: recorder, logger: log}
}

// Destroy discards the session's map and records the stats it held at
// teardown. It reports whether a map existed.
func (m *Manager) Destroy(ctx context.Context, sessionID string) (bool, error) {
	stats, existed := m.engine.DestroySession(sessionID)
	if !existed {
		m.logger.Debug("Teardown for session without redaction map", zap.String("session_id", sessionID))
		return false, nil
	}

	if m.recorder == nil {
		return true, nil
	}
	if err := m.recorder.RecordTeardown(ctx, sessionID, stats); err != nil {
		return true, fmt.Errorf("failed to record teardown: %w", err)
	}
	return true, nil
}

// Created notes a new session. Maps are created on first redaction, so
// there is nothing to allocate here.
func (m *Manager) Created(sessionID string) {
	m.logger.Debug("Session created", zap.String("session_id", sessionID))
}

// Handle applies a decoded event.
func (m *Manager) Handle(ctx context.Context, ev Event) error {
	if ev.Type == EventCreated {
		m.Created(ev.SessionID)
		return nil
	}
	_, err := m.Destroy(ctx, ev.SessionID)
	return err
}

// HandlePayload decodes a raw payload and applies it. Invalid payloads are
// logged and dropped.
func (m *Manager) HandlePayload(ctx context.Context, payload []byte) {
	ev, err := DecodeEvent(payload)
	if err != nil {
		m.logger.Warn("Dropping lifecycle message", zap.Error(err))
		return
	}
	if err := m.Handle(ctx, ev); err != nil {
		m.logger.Error("Lifecycle event failed",
			zap.String("session_id", ev.SessionID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}
