// Package cache provides the local persistent cache backing the onboarding
// sync engine.
//
// The cache is an embedded SQLite database (WAL mode for concurrent reads)
// holding one serialized list per collection key. It is the low-latency
// source the engine merges against the remote feed: writes land here
// synchronously, and in-process watchers are notified so the merged
// canonical lists pick them up immediately.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sgupta906/oboarding-sub000/internal/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Cache wraps the SQLite connection plus in-process change notification.
type Cache struct {
	conn *sql.DB
	path string

	mu       sync.Mutex
	watchers map[int]func(model.Key)
	nextID   int
}

// Open creates a cache database at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created; call InitSchema before first use.
// The caller MUST call Close() when done.
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{
		conn:     conn,
		path:     path,
		watchers: make(map[int]func(model.Key)),
	}

	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := c.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return c, nil
}

// Close closes the database connection after checkpointing the WAL.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}

	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}

	c.conn = nil
	return nil
}

// InitSchema creates the collections table if it doesn't exist. Idempotent.
func (c *Cache) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := c.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadRaw returns the serialized list stored under key, or nil if the
// collection has never been written.
func (c *Cache) LoadRaw(key model.Key) ([]byte, error) {
	var data string
	err := c.conn.QueryRow("SELECT data FROM collections WHERE key = ?", string(key)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", key, err)
	}
	return []byte(data), nil
}

// SaveRaw stores the serialized list for key and notifies watchers.
func (c *Cache) SaveRaw(key model.Key, data []byte) error {
	_, err := c.conn.Exec(`
		INSERT INTO collections (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(key), string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save collection %s: %w", key, err)
	}

	c.notify(key)
	return nil
}

// Watch registers fn to run after every write, with the key that changed.
// The returned function removes the watcher.
func (c *Cache) Watch(fn func(model.Key)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(key model.Key) {
	c.mu.Lock()
	fns := make([]func(model.Key), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// Load reads and decodes the list stored under key. A never-written
// collection decodes as an empty list.
func Load[T any](c *Cache, key model.Key) ([]T, error) {
	raw, err := c.LoadRaw(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", key, err)
	}
	return list, nil
}

// Save encodes and stores the list under key.
func Save[T any](c *Cache, key model.Key, list []T) error {
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", key, err)
	}
	return c.SaveRaw(key, raw)
}

// Upsert inserts rec into the list stored under key, replacing any existing
// record with the same id.
func Upsert[T model.Record[T]](c *Cache, key model.Key, rec T) error {
	list, err := Load[T](c, key)
	if err != nil {
		return err
	}

	replaced := false
	for i, cur := range list {
		if cur.RecordID() == rec.RecordID() {
			list[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, rec)
	}

	return Save(c, key, list)
}

// Delete removes the record with the given id from the list stored under
// key. Deleting an absent id is a no-op write.
func Delete[T model.Record[T]](c *Cache, key model.Key, id string) error {
	list, err := Load[T](c, key)
	if err != nil {
		return err
	}

	out := list[:0]
	for _, cur := range list {
		if cur.RecordID() != id {
			out = append(out, cur)
		}
	}

	return Save(c, key, out)
}

// GetOne returns the record with the given id from the list stored under
// key, if present.
func GetOne[T model.Record[T]](c *Cache, key model.Key, id string) (T, bool, error) {
	var zero T
	list, err := Load[T](c, key)
	if err != nil {
		return zero, false, err
	}
	for _, cur := range list {
		if cur.RecordID() == id {
			return cur, true, nil
		}
	}
	return zero, false, nil
}
