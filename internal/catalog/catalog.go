// Package catalog records emitted xRIT files in a SQLite database so runs
// can be inspected after the fact and the monitor can report recent output.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	path      TEXT NOT NULL,
	file_type TEXT NOT NULL,
	vcid      INTEGER NOT NULL,
	date      TEXT NOT NULL,
	mode      TEXT NOT NULL,
	size      INTEGER NOT NULL,
	emitted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS files_date ON files(date);
`

// Entry describes one emitted file.
type Entry struct {
	Name      string
	Path      string
	FileType  string
	VCID      uint8
	Date      string
	Mode      string
	Size      int
	EmittedAt time.Time
}

// Catalog is an open emission catalog. Safe for a single writer; the demuxer
// core is the only writer.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record inserts one emitted file.
func (c *Catalog) Record(e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO files (name, path, file_type, vcid, date, mode, size, emitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Path, e.FileType, e.VCID, e.Date, e.Mode, e.Size,
		e.EmittedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("catalog: insert %s: %w", e.Name, err)
	}
	return nil
}

// Recent returns the most recently emitted entries, newest first.
func (c *Catalog) Recent(limit int) ([]Entry, error) {
	rows, err := c.db.Query(
		`SELECT name, path, file_type, vcid, date, mode, size, emitted_at
		 FROM files ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var emitted string
		if err := rows.Scan(&e.Name, &e.Path, &e.FileType, &e.VCID, &e.Date, &e.Mode, &e.Size, &emitted); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		e.EmittedAt, _ = time.Parse(time.RFC3339, emitted)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded files.
func (c *Catalog) Count() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
