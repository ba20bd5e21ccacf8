package workspace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"scadls/internal/lang"
)

const sqliteDriverName = "sqlite"

// Cache is a warm-start store for library file symbols. Scanning a large
// library tree re-extracts only files whose mtime or size changed; the
// rest come back from sqlite without touching the parser.
type Cache struct {
	db *sql.DB

	getStmt *sql.Stmt
	putStmt *sql.Stmt
}

// cachePayload persists the whole scope arena: restoring only file-scope
// declarations would re-attribute references inside module and function
// bodies to same-named file-level declarations.
type cachePayload struct {
	Scopes   []lang.Scope            `json:"scopes"`
	Includes []lang.IncludeDirective `json:"includes"`
	Refs     []lang.Reference        `json:"refs"`
}

func OpenCache(path string) (*Cache, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open symbol cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping symbol cache %q: %w", cleanPath, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS file_symbols (
  path     TEXT PRIMARY KEY,
  mtime_ns INTEGER NOT NULL,
  size     INTEGER NOT NULL,
  payload  BLOB NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate symbol cache: %w", err)
	}

	getStmt, err := db.Prepare(`SELECT mtime_ns, size, payload FROM file_symbols WHERE path = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare cache get: %w", err)
	}
	putStmt, err := db.Prepare(`INSERT INTO file_symbols (path, mtime_ns, size, payload)
VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET mtime_ns = excluded.mtime_ns, size = excluded.size, payload = excluded.payload`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare cache put: %w", err)
	}

	return &Cache{db: db, getStmt: getStmt, putStmt: putStmt}, nil
}

// Lookup returns a cached entry for path when the file on disk still
// matches the cached fingerprint.
func (c *Cache) Lookup(path string) (*FileEntry, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	var mtime, size int64
	var payload []byte
	if err := c.getStmt.QueryRow(path).Scan(&mtime, &size, &payload); err != nil {
		return nil, false
	}
	if mtime != info.ModTime().UnixNano() || size != info.Size() {
		return nil, false
	}

	var p cachePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, false
	}
	// Rows written before the arena was persisted carry no scopes; treat
	// them as misses so the file is re-extracted and rewritten.
	if len(p.Scopes) == 0 {
		return nil, false
	}

	syms := &lang.FileSymbols{
		Scopes:   p.Scopes,
		Includes: p.Includes,
		Refs:     p.Refs,
	}
	return &FileEntry{Path: path, Syms: syms, FromDisk: true}, true
}

// Put stores a disk-backed entry's extracted symbols.
func (c *Cache) Put(entry *FileEntry) {
	if entry == nil || entry.Syms == nil || !entry.FromDisk {
		return
	}
	info, err := os.Stat(entry.Path)
	if err != nil {
		return
	}
	payload, err := json.Marshal(cachePayload{
		Scopes:   entry.Syms.Scopes,
		Includes: entry.Syms.Includes,
		Refs:     entry.Syms.Refs,
	})
	if err != nil {
		return
	}
	_, _ = c.putStmt.Exec(entry.Path, info.ModTime().UnixNano(), info.Size(), payload)
}

// Invalidate drops the row for path, forcing re-extraction.
func (c *Cache) Invalidate(path string) {
	_, _ = c.db.Exec(`DELETE FROM file_symbols WHERE path = ?`, path)
}

func (c *Cache) Close() error {
	if c.getStmt != nil {
		_ = c.getStmt.Close()
	}
	if c.putStmt != nil {
		_ = c.putStmt.Close()
	}
	return c.db.Close()
}
