// Package postgres provides PostgreSQL storage for keyed session data.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/txn2/mcp-prospect-research/pkg/database/migrate"
	"github.com/txn2/mcp-prospect-research/pkg/session"
)

const (
	tableName = "session_data"

	defaultMaxOpenConns = 25
)

// upsertSuffix keeps seq and created_at of an existing row so the key keeps
// its original position.
const upsertSuffix = "ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements session.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// Config configures Open.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)

// New wraps an open database whose schema is already migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to cfg.DSN, verifies the connection and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := migrate.Run(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("postgres session data store ready", "max_open_conns", cfg.MaxOpenConns)
	return New(db), nil
}

// NewSessionID returns a fresh session id.
func (*Store) NewSessionID() string {
	return session.NewID()
}

// Put creates or replaces the value under key.
func (s *Store) Put(ctx context.Context, sessionID, key string, value json.RawMessage) error {
	if err := session.CheckKey(sessionID, key); err != nil {
		return err
	}
	if err := session.CheckValue(value); err != nil {
		return err
	}

	query, args, err := psq.Insert(tableName).
		Columns("session_id", "key", "value").
		Values(sessionID, key, string(value)).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting session data: %w", err)
	}
	return nil
}

// Get returns the value under key.
func (s *Store) Get(ctx context.Context, sessionID, key string) (json.RawMessage, bool, error) {
	query, args, err := psq.Select("value").
		From(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("building select: %w", err)
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying session data: %w", err)
	}
	return json.RawMessage(value), true, nil
}

// ListKeys returns keys in insertion order.
func (s *Store) ListKeys(ctx context.Context, sessionID string) ([]string, error) {
	query, args, err := psq.Select("key").
		From(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building key listing: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing session keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning session key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session keys: %w", err)
	}
	return keys, nil
}

// Delete removes one key.
func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	return s.exec(ctx, "deleting session key", psq.Delete(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Eq{"key": key}))
}

// DeleteSession removes all keys of a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.exec(ctx, "deleting session", psq.Delete(tableName).
		Where(sq.Eq{"session_id": sessionID}))
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, what string, b sq.DeleteBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building %s: %w", what, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
