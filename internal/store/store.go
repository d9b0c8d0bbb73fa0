// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection. Writes are serialized through mu because
// SQLite's single-writer model means concurrent Exec calls just queue up
// behind SQLITE_BUSY anyway; holding the lock in Go keeps error handling
// simple.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates (if needed) and migrates the database at path, returning a
// ready-to-use Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for packages that need to run ad-hoc
// read queries (e.g. analytics) without going through Store's CRUD methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	name TEXT,
	destination_url TEXT NOT NULL,
	campaign TEXT,
	channel TEXT,
	location TEXT,
	asset TEXT,
	owner TEXT,
	notes TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	auto_append_utm INTEGER NOT NULL DEFAULT 0,
	utm_source TEXT,
	utm_medium TEXT,
	utm_campaign TEXT,
	utm_term TEXT,
	utm_content TEXT,
	dynamic INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_slug ON links(slug);

CREATE TABLE IF NOT EXISTS scan_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER NOT NULL REFERENCES links(id),
	scanned_at DATETIME NOT NULL,
	ip_hash TEXT,
	visitor_fingerprint TEXT,
	country TEXT,
	region TEXT,
	city TEXT,
	os TEXT,
	browser TEXT,
	device_type TEXT,
	referrer TEXT,
	user_agent TEXT,
	is_bot INTEGER NOT NULL DEFAULT 0,
	is_unique INTEGER NOT NULL DEFAULT 0,
	is_duplicate INTEGER NOT NULL DEFAULT 0,
	query_payload TEXT
);
CREATE INDEX IF NOT EXISTS idx_scan_events_link_id ON scan_events(link_id);
CREATE INDEX IF NOT EXISTS idx_scan_events_scanned_at ON scan_events(scanned_at);
CREATE INDEX IF NOT EXISTS idx_scan_events_fingerprint ON scan_events(visitor_fingerprint);
CREATE INDEX IF NOT EXISTS idx_scan_events_is_bot ON scan_events(is_bot);
CREATE INDEX IF NOT EXISTS idx_scan_events_is_unique ON scan_events(is_unique);
CREATE INDEX IF NOT EXISTS idx_scan_events_is_duplicate ON scan_events(is_duplicate);

CREATE TABLE IF NOT EXISTS link_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER NOT NULL REFERENCES links(id),
	action TEXT NOT NULL,
	details TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_link_history_link_id ON link_history(link_id);

CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER REFERENCES links(id),
	name TEXT NOT NULL,
	target_url TEXT,
	description TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goals_link_id ON goals(link_id);

CREATE TABLE IF NOT EXISTS conversion_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER NOT NULL REFERENCES links(id),
	goal_id INTEGER REFERENCES goals(id),
	scan_event_id INTEGER REFERENCES scan_events(id),
	event_name TEXT,
	value REAL,
	visitor_fingerprint TEXT,
	occurred_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversion_events_link_id ON conversion_events(link_id);
CREATE INDEX IF NOT EXISTS idx_conversion_events_occurred_at ON conversion_events(occurred_at);
`

// columnMigrations lists columns that were added to the schema after initial
// release. On an existing on-disk database missing one of these, migrate
// adds it with ALTER TABLE rather than requiring a destructive rebuild.
var columnMigrations = []struct {
	table, column, ddl string
}{
	{"links", "expires_at", "DATETIME"},
}

// migrate creates the schema if missing, then applies any outstanding
// column-add migrations. Both steps are idempotent and safe to run on
// every boot: CREATE TABLE/INDEX use IF NOT EXISTS, and addColumnIfMissing
// checks PRAGMA table_info before issuing ALTER TABLE.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	for _, m := range columnMigrations {
		if err := s.addColumnIfMissing(m.table, m.column, m.ddl); err != nil {
			return fmt.Errorf("store: migrate %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

// addColumnIfMissing adds column to table with the given DDL type if it
// isn't already present, by inspecting PRAGMA table_info. sqlite has no
// ADD COLUMN IF NOT EXISTS, so the existence check has to happen in Go.
func (s *Store) addColumnIfMissing(table, column, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return err
		}
		if name == column {
			return rows.Err()
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl))
	return err
}
