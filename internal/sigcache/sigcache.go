// Package sigcache caches resolved code signatures in a SQLite database
// so repeated drift checks skip re-parsing unchanged source files.
// Entries are invalidated by file mtime and size.
package sigcache

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sintesi/internal/errors"
	"sintesi/internal/logging"
	"sintesi/internal/signature"
)

// DBFileName is the cache database inside the .sintesi directory.
const DBFileName = "sigcache.db"

// Cache is the on-disk signature cache.
type Cache struct {
	conn   *sql.DB
	logger *logging.Logger
}

// Open opens or creates the cache database under sintesiDir.
func Open(sintesiDir string, logger *logging.Logger) (*Cache, error) {
	if err := os.MkdirAll(sintesiDir, 0755); err != nil {
		return nil, errors.New(errors.InternalError, "failed to create cache directory", err)
	}

	dbPath := filepath.Join(sintesiDir, DBFileName)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to open signature cache", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, errors.New(errors.InternalError, "failed to set pragma", err)
		}
	}

	c := &Cache{conn: conn, logger: logger}
	if err := c.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, errors.New(errors.InternalError, "failed to initialize cache schema", err)
	}
	return c, nil
}

func (c *Cache) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS signatures (
			file_path TEXT NOT NULL,
			symbol TEXT NOT NULL,
			mtime_ns INTEGER NOT NULL,
			size INTEGER NOT NULL,
			symbol_type TEXT NOT NULL,
			signature_text TEXT NOT NULL,
			is_exported INTEGER NOT NULL,
			PRIMARY KEY (file_path, symbol)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := c.conn.Exec(schema)
	return err
}

// Get returns the cached signature for (filePath, symbol) when the file
// still has the recorded mtime and size. The second return is false on
// a miss or a stale entry.
func (c *Cache) Get(filePath, symbol string, mtimeNS, size int64) (*signature.CodeSignature, bool, error) {
	row := c.conn.QueryRow(`
		SELECT mtime_ns, size, symbol_type, signature_text, is_exported
		FROM signatures WHERE file_path = ? AND symbol = ?`,
		filePath, symbol)

	var (
		cachedMtime, cachedSize int64
		symbolType, sigText     string
		exported                int
	)
	err := row.Scan(&cachedMtime, &cachedSize, &symbolType, &sigText, &exported)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.New(errors.InternalError, "failed to query signature cache", err)
	}

	if cachedMtime != mtimeNS || cachedSize != size {
		return nil, false, nil
	}

	return &signature.CodeSignature{
		SymbolName:    symbol,
		SymbolType:    signature.SymbolType(symbolType),
		SignatureText: sigText,
		IsExported:    exported != 0,
	}, true, nil
}

// Put stores or replaces the signature for (filePath, symbol).
func (c *Cache) Put(filePath string, sig *signature.CodeSignature, mtimeNS, size int64) error {
	exported := 0
	if sig.IsExported {
		exported = 1
	}
	_, err := c.conn.Exec(`
		INSERT OR REPLACE INTO signatures
			(file_path, symbol, mtime_ns, size, symbol_type, signature_text, is_exported)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		filePath, sig.SymbolName, mtimeNS, size, string(sig.SymbolType), sig.SignatureText, exported)
	if err != nil {
		return errors.New(errors.InternalError, "failed to write signature cache", err)
	}
	return nil
}

// Invalidate drops every cached symbol for the given file.
func (c *Cache) Invalidate(filePath string) error {
	_, err := c.conn.Exec(`DELETE FROM signatures WHERE file_path = ?`, filePath)
	if err != nil {
		return errors.New(errors.InternalError, "failed to invalidate signature cache", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
