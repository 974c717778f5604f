// Package store provides a SQLite-backed cache of parsed events keyed by
// source file. Only per-file parse products are cached; reports are always
// recomputed from events and never persisted.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/convstat/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed per-file event caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// TrackedFiles returns a map of path -> FileInfo for every cached file.
func (c *Cache) TrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT path, mtime_ns, size_bytes FROM files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFile stores a file's parse products, replacing any previous rows for
// the same path. REPLACE on files cascades to the old event and error rows.
func (c *Cache) SaveFile(path string, mtimeNs, sizeBytes int64, events []model.Event, parseErrors []model.ParseError) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(`INSERT OR REPLACE INTO files (path, mtime_ns, size_bytes, parsed_at)
		VALUES (?, ?, ?, ?)`, path, mtimeNs, sizeBytes, now)
	if err != nil {
		return err
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	evStmt, err := tx.Prepare(`INSERT INTO events
		(file_id, line, session_id, ts_unix_ns, role, model,
		 input_tokens, output_tokens, cache_creation, cache_read, text_sample)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = evStmt.Close() }()

	for _, ev := range events {
		_, err = evStmt.Exec(fileID, ev.Line, ev.SessionID, ev.Timestamp.UnixNano(),
			string(ev.Role), ev.Model,
			ev.Tokens.Input, ev.Tokens.Output, ev.Tokens.CacheCreation, ev.Tokens.CacheRead,
			ev.TextSample)
		if err != nil {
			return err
		}
	}

	for _, pe := range parseErrors {
		_, err = tx.Exec(`INSERT INTO parse_errors (file_id, line, reason, field)
			VALUES (?, ?, ?, ?)`, fileID, pe.Line, pe.Reason, pe.Field)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadFile reads a file's cached events and parse errors in line order.
// Event timestamps come back normalized to UTC; bucketing re-zones them.
func (c *Cache) LoadFile(path string) ([]model.Event, []model.ParseError, error) {
	rows, err := c.db.Query(`SELECT
		e.line, e.session_id, e.ts_unix_ns, e.role, e.model,
		e.input_tokens, e.output_tokens, e.cache_creation, e.cache_read, e.text_sample
		FROM events e JOIN files f ON e.file_id = f.id
		WHERE f.path = ? ORDER BY e.line`, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var tsNs int64
		var role string
		if err := rows.Scan(&ev.Line, &ev.SessionID, &tsNs, &role, &ev.Model,
			&ev.Tokens.Input, &ev.Tokens.Output, &ev.Tokens.CacheCreation, &ev.Tokens.CacheRead,
			&ev.TextSample); err != nil {
			return nil, nil, err
		}
		ev.Timestamp = time.Unix(0, tsNs).UTC()
		ev.Role = model.Role(role)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	errRows, err := c.db.Query(`SELECT pe.line, pe.reason, pe.field
		FROM parse_errors pe JOIN files f ON pe.file_id = f.id
		WHERE f.path = ? ORDER BY pe.line`, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = errRows.Close() }()

	var parseErrors []model.ParseError
	for errRows.Next() {
		var pe model.ParseError
		if err := errRows.Scan(&pe.Line, &pe.Reason, &pe.Field); err != nil {
			return nil, nil, err
		}
		parseErrors = append(parseErrors, pe)
	}

	return events, parseErrors, errRows.Err()
}

// Prune drops cache rows for files that no longer exist on disk.
func (c *Cache) Prune(existing map[string]struct{}) error {
	rows, err := c.db.Query("SELECT path FROM files")
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return err
		}
		if _, ok := existing[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, path := range stale {
		if _, err := c.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
			return err
		}
	}
	return nil
}

// EventCount returns the number of cached events.
func (c *Cache) EventCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

// FileCount returns the number of tracked files.
func (c *Cache) FileCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	return count, err
}
