package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLStore implements Store over database/sql. The driver is either
// "sqlite3" for a local file or "libsql" for a remote database.
type SQLStore struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

// NewSQLStore opens a connection for the specified driver, verifies it, and
// ensures the schema exists.
func NewSQLStore(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*SQLStore, error) {
	start := time.Now()
	if logger != nil {
		logger.Store().Debug("Opening persistent store", "driverName", driverName)
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistent store: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistent store ping failed: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv schema: %w", err)
	}

	if logger != nil {
		logger.Store().Info("Persistent store ready", "driverName", driverName, "duration", time.Since(start))
	}

	return &SQLStore{db: db, logger: logger}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	// LIKE with an escaped prefix keeps this portable across both drivers.
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv_entries WHERE key LIKE ? ESCAPE '\\' ORDER BY key", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys for prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLStore) Close() error {
	if s.logger != nil {
		s.logger.Store().Info("Closing persistent store")
	}
	return s.db.Close()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
