// Package cache stores compiled bytecode modules in SQLite, keyed by the
// content hash of the source term and the options it was compiled with.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/lamc/compiler"
	"github.com/chazu/lamc/compiler/hash"
	"github.com/chazu/lamc/pkg/bytecode"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("lamc.cache")

// Entry is one cached compilation.
type Entry struct {
	BuildID string
	Type    string
	Module  *bytecode.Module
	Created time.Time
}

// Cache is a persistent compile cache.
type Cache struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Key returns the cache key of a parsed term compiled with opts.
// Alpha-equivalent terms share a key.
func Key(parsed compiler.Expr, opts compiler.Options) string {
	return fmt.Sprintf("%s:%s:bc%d", hash.HexHash(parsed), opts.Fingerprint(), bytecode.BytecodeVersion)
}

// Open opens (creating if needed) the cache database at dbPath.
func Open(dbPath string) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		key TEXT PRIMARY KEY,
		build_id TEXT NOT NULL,
		type TEXT NOT NULL,
		module BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put stores e under key, replacing any earlier entry.
func (c *Cache) Put(key string, e *Entry) error {
	if _, err := uuid.Parse(e.BuildID); err != nil {
		return fmt.Errorf("cache: build id %q: %w", e.BuildID, err)
	}
	data, err := bytecode.MarshalModule(e.Module)
	if err != nil {
		return fmt.Errorf("cache: encoding module: %w", err)
	}
	created := e.Created
	if created.IsZero() {
		created = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO modules (key, build_id, type, module, created) VALUES (?, ?, ?, ?, ?)",
		key, e.BuildID, e.Type, data, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache: saving %s: %w", key, err)
	}
	log.Debug("stored", "key", key, "build", e.BuildID, "bytes", len(data))
	return nil
}

// Get returns the entry stored under key. The boolean is false on a miss.
func (c *Cache) Get(key string) (*Entry, bool, error) {
	var (
		e       Entry
		data    []byte
		created int64
	)
	err := c.db.QueryRow("SELECT build_id, type, module, created FROM modules WHERE key = ?", key).
		Scan(&e.BuildID, &e.Type, &data, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("miss", "key", key)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: querying %s: %w", key, err)
	}

	e.Module, err = bytecode.UnmarshalModule(data)
	if err != nil {
		return nil, false, fmt.Errorf("cache: entry %s: %w", key, err)
	}
	e.Created = time.Unix(0, created)
	log.Debug("hit", "key", key, "build", e.BuildID)
	return &e, true, nil
}

// Len returns the number of cached modules.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM modules").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: counting: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec("DELETE FROM modules"); err != nil {
		return fmt.Errorf("cache: clearing: %w", err)
	}
	return nil
}
