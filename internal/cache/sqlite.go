package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache persists entries in a local SQLite file. The CLI uses it so a
// listing fetched in one run can be served when a later run cannot reach the server.
type SQLiteCache struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// OpenSQLiteCache opens or creates the cache database at path.
func OpenSQLiteCache(path string, retention time.Duration) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		stored_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS generations (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache tables: %w", err)
	}

	return &SQLiteCache{db: db, retention: retention, now: time.Now}, nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		raw      string
		storedAt int64
	)
	err := c.db.QueryRowContext(ctx, `SELECT value, stored_at FROM entries WHERE key = ?`, key).Scan(&raw, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	e := Entry{Value: json.RawMessage(raw), StoredAt: time.UnixMilli(storedAt).UTC()}
	if c.retention > 0 && c.now().Sub(e.StoredAt) >= c.retention {
		_ = c.Invalidate(ctx, key)
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key string, value any) error {
	e, err := newEntry(value, c.now())
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		key, string(e.Value), e.StoredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Invalidate(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return nil
}

func (c *SQLiteCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE substr(key, 1, length(?1)) = ?1`, prefix)
	if err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Generation(ctx context.Context, name string) (int64, error) {
	var gen int64
	err := c.db.QueryRowContext(ctx, `SELECT value FROM generations WHERE name = ?`, name).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func (c *SQLiteCache) Bump(ctx context.Context, name string) (int64, error) {
	var gen int64
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO generations (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`, name).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("bump cache generation: %w", err)
	}
	return gen, nil
}
