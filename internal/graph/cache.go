package graph

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS input_hashes (
	output     TEXT NOT NULL,
	input      TEXT NOT NULL,
	hash       TEXT NOT NULL,
	session_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (output, input)
);
`

// Cache persists the content hashes of every rule input as of the last
// successful build of that rule's output. It backs the content-based
// half of the freshness check: a matching mtime alone does not prove an
// output was produced from the current inputs.
type Cache struct {
	db      *sql.DB
	session string
}

// OpenCache opens (creating if needed) the hash cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	c, err := NewCache(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewCache wraps an open database, running migrations and starting a
// new build session.
func NewCache(db *sql.DB) (*Cache, error) {
	for _, stmt := range strings.Split(cacheSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("migrate hash cache: %w", err)
		}
	}

	c := &Cache{db: db, session: uuid.NewString()}
	if _, err := db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		c.session, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("record build session: %w", err)
	}
	return c, nil
}

// Session returns the id of the current build session.
func (c *Cache) Session() string { return c.session }

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// RecordedHash returns the input hash stored by the last successful
// build of output, or ok=false when none is recorded.
func (c *Cache) RecordedHash(output, input string) (string, bool, error) {
	var h string
	err := c.db.QueryRow(
		`SELECT hash FROM input_hashes WHERE output = ? AND input = ?`,
		output, input,
	).Scan(&h)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read hash cache: %w", err)
	}
	return h, true, nil
}

// Record stores the hash of one input for output, attributed to the
// current session.
func (c *Cache) Record(output, input, hash string) error {
	_, err := c.db.Exec(
		`INSERT INTO input_hashes (output, input, hash, session_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(output, input)
		 DO UPDATE SET hash = excluded.hash, session_id = excluded.session_id,
		               updated_at = excluded.updated_at`,
		output, input, hash, c.session, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write hash cache: %w", err)
	}
	return nil
}
