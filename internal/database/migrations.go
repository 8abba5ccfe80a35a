package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS dosages (
    substance TEXT NOT NULL,
    route TEXT NOT NULL,
    level TEXT NOT NULL,
    quantity REAL NOT NULL,
    unit TEXT NOT NULL,
    PRIMARY KEY (substance, route, level)
);

CREATE TABLE IF NOT EXISTS durations (
    substance TEXT NOT NULL,
    route TEXT NOT NULL,
    phase TEXT NOT NULL,
    low REAL NOT NULL,
    high REAL NOT NULL,
    unit TEXT NOT NULL,
    PRIMARY KEY (substance, route, phase)
);

CREATE TABLE IF NOT EXISTS effects (
    substance TEXT NOT NULL,
    position INTEGER NOT NULL,
    effect TEXT NOT NULL,
    PRIMARY KEY (substance, position)
);

CREATE TABLE IF NOT EXISTS stop_words (
    word TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS trip_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch INTEGER NOT NULL CHECK(batch IN (1, 2)),
    substance TEXT NOT NULL,
    body TEXT NOT NULL,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    phase INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    report_count INTEGER DEFAULT 0,
    removed_count INTEGER DEFAULT 0,
    status TEXT NOT NULL CHECK(status IN ('ok', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_trip_reports_batch ON trip_reports(batch);
CREATE INDEX IF NOT EXISTS idx_trip_reports_substance ON trip_reports(substance);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "wiki revisions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS revisions (
    substance TEXT PRIMARY KEY,
    revision_link TEXT NOT NULL,
    author TEXT,
    updated_at TEXT NOT NULL,
    recorded_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "pending substances of cut-short runs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE run_reports ADD COLUMN pending TEXT NOT NULL DEFAULT ''`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
