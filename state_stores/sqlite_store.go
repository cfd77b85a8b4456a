package state_stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alan791205/ohara/config"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS states (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

type SQLiteStateStore struct {
	ctx  context.Context
	conn *sql.DB
}

func NewSQLiteStateStore(ctx context.Context, cfg config.SQLiteStateStoreConfig) (*SQLiteStateStore, error) {
	path := cfg.Path
	if path == "" {
		path = "ohara.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStateStore{ctx: ctx, conn: conn}, nil
}

func (s *SQLiteStateStore) Get(key string, new func() proto.Message) (proto.Message, bool, error) {
	var data []byte
	var expiresAt int64
	err := s.conn.QueryRowContext(s.ctx,
		`SELECT value, expires_at FROM states WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return new(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if expiresAt != 0 && expiresAt < time.Now().UnixNano() {
		return new(), false, nil
	}
	msg := new()
	if msg == nil {
		return nil, false, nil
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return msg, true, nil
}

func (s *SQLiteStateStore) Set(key string, msg proto.Message, ttl time.Duration) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	_, err = s.conn.ExecContext(s.ctx,
		`INSERT INTO states (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, data, expiresAt,
	)
	return err
}

func (s *SQLiteStateStore) Delete(key string) error {
	_, err := s.conn.ExecContext(s.ctx, `DELETE FROM states WHERE key = ?`, key)
	return err
}

func (s *SQLiteStateStore) Keys(prefix string) ([]string, error) {
	rows, err := s.conn.QueryContext(s.ctx,
		`SELECT key FROM states
		 WHERE substr(key, 1, ?) = ? AND (expires_at = 0 OR expires_at >= ?)
		 ORDER BY key`,
		len(prefix), prefix, time.Now().UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStateStore) Close() {
	if err := s.conn.Close(); err != nil {
		slog.Error("sqlite state store: close failed", "error", err)
	}
}
