package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/raaihank/llm-redactor/internal/privacy"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeRedaction is sent after a redaction call touched tokens
	EventTypeRedaction EventType = "redaction"
	// EventTypeSessionDestroyed is sent when a session map is discarded
	EventTypeSessionDestroyed EventType = "session_destroyed"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data"`
}

// RedactionEvent carries token names and counts. Original values are never
// broadcast.
type RedactionEvent struct {
	NewTokens    int                  `json:"new_tokens"`
	ReusedTokens int                  `json:"reused_tokens"`
	Tokens       []string             `json:"tokens"`
	ByKind       map[privacy.Kind]int `json:"by_kind"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string

	// Events limits delivery to these types when non-empty.
	Events map[EventType]bool
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	TotalMessages     int64     `json:"total_messages"`
	TotalBroadcasts   int64     `json:"total_broadcasts"`
	LastBroadcastTime time.Time `json:"last_broadcast_time"`
}
