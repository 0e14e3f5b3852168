// Result cache backed by SQLite.
//
// Information Hiding:
// - Table layout and DSN options
// - Write serialization (one writer, lock-free readers)
// - Fail-open error policy: storage faults read as misses and are logged
// - Collapsing of concurrent identical misses into one fetch

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/sleuth/metrics"
	"github.com/richinex/sleuth/model"
	"golang.org/x/sync/singleflight"
)

// ErrRecordNotFound is returned when a requested key or artifact does not exist.
var ErrRecordNotFound = errors.New("record not found")

// ResultCache stores tool results keyed by model.CacheKey.
// Entries are never invalidated. Safe for concurrent use.
type ResultCache struct {
	db      *sql.DB
	writeMu sync.Mutex
	group   singleflight.Group
	logger  *slog.Logger
}

// CacheOption configures a ResultCache.
type CacheOption func(*ResultCache)

// WithCacheLogger sets the logger used for storage faults.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *ResultCache) { c.logger = l }
}

// OpenCache opens or creates the cache database at path.
// Creates parent directories if they don't exist.
func OpenCache(path string, opts ...CacheOption) (*ResultCache, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	return newResultCache(db, opts)
}

// NewInMemoryCache creates a cache that lives for the life of the process (useful for testing).
func NewInMemoryCache(opts ...CacheOption) (*ResultCache, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory cache: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newResultCache(db, opts)
}

func newResultCache(db *sql.DB, opts []CacheOption) (*ResultCache, error) {
	c := &ResultCache{db: db}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *ResultCache) createSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *ResultCache) Close() error {
	return c.db.Close()
}

// Get returns the cached value for key. Storage faults are reported as misses.
func (c *ResultCache) Get(ctx context.Context, key model.CacheKey) (string, bool) {
	var value sql.NullString
	err := c.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key.String()).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.CacheLookups.WithLabelValues(key.Namespace, "miss").Inc()
		return "", false
	case err != nil:
		metrics.CacheLookups.WithLabelValues(key.Namespace, "error").Inc()
		c.logger.Warn("cache read failed", "key", key.String(), "error", err)
		return "", false
	}
	metrics.CacheLookups.WithLabelValues(key.Namespace, "hit").Inc()
	return value.String, true
}

// Set stores value under key, replacing any previous value.
// Failures are logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key model.CacheKey, value string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache (key, value) VALUES (?, ?)",
		key.String(), value)
	if err != nil {
		metrics.CacheWriteErrors.Inc()
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
	}
}

// FetchFunc produces a value on a cache miss. cacheable reports whether the
// value should be stored; failures are returned as text with cacheable false.
type FetchFunc func(ctx context.Context) (value string, cacheable bool)

// Resolve returns the cached value for key or calls fetch on a miss.
// Concurrent misses for the same key share one fetch.
func (c *ResultCache) Resolve(ctx context.Context, key model.CacheKey, fetch FetchFunc) string {
	if value, ok := c.Get(ctx, key); ok {
		return value
	}

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		value, cacheable := fetch(ctx)
		if cacheable {
			c.Set(ctx, key, value)
		}
		return value, nil
	})
	return v.(string)
}

// Entry is one stored cache row.
type Entry struct {
	Key       string
	Value     string
	CreatedAt time.Time
}

// Lookup returns the entry stored under the raw key string.
func (c *ResultCache) Lookup(ctx context.Context, rawKey string) (Entry, error) {
	entry := Entry{Key: rawKey}
	var value sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT value, created_at FROM cache WHERE key = ?", rawKey,
	).Scan(&value, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrRecordNotFound, rawKey)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read cache entry: %w", err)
	}
	entry.Value = value.String
	return entry, nil
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Entries    int
	Bytes      int64
	Namespaces map[string]int
}

// Stats counts entries per namespace.
func (c *ResultCache) Stats(ctx context.Context) (CacheStats, error) {
	stats := CacheStats{Namespaces: make(map[string]int)}

	rows, err := c.db.QueryContext(ctx, "SELECT key, LENGTH(value) FROM cache")
	if err != nil {
		return stats, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var size sql.NullInt64
		if err := rows.Scan(&key, &size); err != nil {
			return stats, fmt.Errorf("failed to scan cache row: %w", err)
		}
		namespace, _, found := strings.Cut(key, ":")
		if !found {
			namespace = ""
		}
		stats.Entries++
		stats.Bytes += size.Int64
		stats.Namespaces[namespace]++
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate cache rows: %w", err)
	}
	return stats, nil
}
