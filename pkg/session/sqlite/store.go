// Package sqlite provides embedded SQLite storage for keyed session data.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/txn2/mcp-prospect-research/pkg/session"
)

const (
	tableName = "session_data"

	// DefaultPath is the database file used when none is configured.
	DefaultPath = "session_data.db"
)

// schema matches the postgres migration. rowid keeps insertion order because
// an upsert updates the existing row in place.
const schema = `CREATE TABLE IF NOT EXISTS session_data (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, key)
)`

const upsertSuffix = "ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP"

// ssq is the SQLite statement builder with question placeholders.
var ssq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store implements session.Store on a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}

	slog.Info("sqlite session data store ready", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
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

	query, args, err := ssq.Insert(tableName).
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
	query, args, err := ssq.Select("value").
		From(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("building select: %w", err)
	}

	var value string
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
	query, args, err := ssq.Select("key").
		From(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("rowid").
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
	query, args, err := ssq.Delete(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session key: %w", err)
	}
	return nil
}

// DeleteSession removes all keys of a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	query, args, err := ssq.Delete(tableName).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping verifies the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
