// Package audit keeps a PostgreSQL log of session teardowns. Only token
// counts are stored; original values never reach the database.
package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/llm-redactor/internal/config"
	"github.com/raaihank/llm-redactor/internal/logger"
	"github.com/raaihank/llm-redactor/internal/privacy"
	"github.com/raaihank/llm-redactor/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_teardowns (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT        NOT NULL,
	total        INTEGER     NOT NULL,
	by_kind      JSONB       NOT NULL DEFAULT '{}'::jsonb,
	destroyed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS session_teardowns_session_id_idx ON session_teardowns (session_id);`

// KindCounts is stored as a JSONB object.
type KindCounts map[privacy.Kind]int

// Value implements driver.Valuer.
func (k KindCounts) Value() (driver.Value, error) {
	if k == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[privacy.Kind]int(k))
}

// Scan implements sql.Scanner.
func (k *KindCounts) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*k = KindCounts{}
		return nil
	default:
		return fmt.Errorf("unsupported by_kind type %T", src)
	}
	counts := KindCounts{}
	if err := json.Unmarshal(raw, &counts); err != nil {
		return fmt.Errorf("failed to decode by_kind: %w", err)
	}
	*k = counts
	return nil
}

// Teardown is one audit row.
type Teardown struct {
	ID          int64      `db:"id" json:"id"`
	SessionID   string     `db:"session_id" json:"session_id"`
	Total       int        `db:"total" json:"total"`
	ByKind      KindCounts `db:"by_kind" json:"by_kind"`
	DestroyedAt time.Time  `db:"destroyed_at" json:"destroyed_at"`
}

// Store writes teardown records.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewStore connects to PostgreSQL and ensures the schema exists.
func NewStore(cfg config.AuditConfig, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	log.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return store, nil
}

// EnsureSchema creates the audit table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// RecordTeardown stores the final stats of a destroyed session.
func (s *Store) RecordTeardown(ctx context.Context, sessionID string, stats session.Stats) error {
	query := `
		INSERT INTO session_teardowns (session_id, total, by_kind)
		VALUES ($1, $2, $3)`

	if _, err := s.db.ExecContext(ctx, query, sessionID, stats.Total, KindCounts(stats.ByKind)); err != nil {
		s.logger.Error("Failed to record teardown", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to record teardown: %w", err)
	}

	s.logger.Debug("Teardown recorded",
		zap.String("session_id", sessionID),
		zap.Int("total", stats.Total))
	return nil
}

// Recent returns the latest teardowns, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Teardown, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, total, by_kind, destroyed_at
		FROM session_teardowns
		ORDER BY destroyed_at DESC, id DESC
		LIMIT $1`

	var rows []Teardown
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query teardowns: %w", err)
	}
	return rows, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "postgres://***"
	}
	return u.Redacted()
}
