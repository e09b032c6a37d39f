package modules

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache is a sqlite-backed store of encoded module interfaces keyed by
// module name and source hash. It lets `build` skip re-elaborating
// modules whose source has not changed.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the build cache under dir/.vaisto.
func OpenCache(dir string) (*Cache, error) {
	cacheDir := filepath.Join(dir, ".vaisto")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(cacheDir, "cache.db"))
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS interfaces (
		module TEXT PRIMARY KEY,
		hash   TEXT NOT NULL,
		data   BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Get returns the cached interface for a module if the source hash
// still matches.
func (c *Cache) Get(module, hash string) ([]byte, bool) {
	var storedHash string
	var data []byte
	err := c.db.QueryRow(`SELECT hash, data FROM interfaces WHERE module = ?`, module).
		Scan(&storedHash, &data)
	if err != nil || storedHash != hash {
		return nil, false
	}
	return data, true
}

// Put stores a freshly encoded interface. Failures are ignored; the
// cache is advisory.
func (c *Cache) Put(module, hash string, data []byte) {
	c.db.Exec(`INSERT INTO interfaces (module, hash, data) VALUES (?, ?, ?)
		ON CONFLICT(module) DO UPDATE SET hash = excluded.hash, data = excluded.data`,
		module, hash, data)
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
