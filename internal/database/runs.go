package database

import (
	"database/sql"
	"strings"
	"time"
)

// UpsertRevision records the latest known wiki revision of a substance.
func (db *DB) UpsertRevision(r Revision) error {
	_, err := db.conn.Exec(
		`INSERT INTO revisions (substance, revision_link, author, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(substance) DO UPDATE SET
			revision_link = excluded.revision_link,
			author = excluded.author,
			updated_at = excluded.updated_at,
			recorded_at = datetime('now')`,
		r.Substance, r.Link, r.Author, r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetRevisions returns every recorded revision ordered by substance.
func (db *DB) GetRevisions() ([]Revision, error) {
	rows, err := db.conn.Query(
		"SELECT substance, revision_link, author, updated_at, recorded_at FROM revisions ORDER BY substance",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var author sql.NullString
		var updated string
		if err := rows.Scan(&r.Substance, &r.Link, &author, &updated, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Author = author.String
		if r.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// InsertRun records a finished pipeline run.
func (db *DB) InsertRun(r RunReport) (int64, error) {
	status := "ok"
	if r.Failed {
		status = "failed"
	}
	result, err := db.conn.Exec(
		`INSERT INTO run_reports (phase, started_at, finished_at, report_count, removed_count, status, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Phase, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.Reports, r.Removed, status, strings.Join(r.Pending, "\n"),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRun returns the most recent run of a phase, or nil if none exists.
func (db *DB) GetLastRun(phase int) (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, phase, started_at, finished_at, report_count, removed_count, status, pending
		FROM run_reports WHERE phase = ? ORDER BY id DESC LIMIT 1`, phase,
	)

	var r RunReport
	var started, finished, status, pending string
	err := row.Scan(&r.ID, &r.Phase, &started, &finished, &r.Reports, &r.Removed, &status, &pending)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return nil, err
	}
	r.Failed = status == "failed"
	if pending != "" {
		r.Pending = strings.Split(pending, "\n")
	}
	return &r, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(DISTINCT substance) FROM dosages", &s.DosechartSubstances},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT substance, route FROM dosages)", &s.Routes},
		{"SELECT COUNT(DISTINCT substance) FROM effects", &s.EffectSubstances},
		{"SELECT COUNT(*) FROM stop_words", &s.StopWords},
		{"SELECT COUNT(*) FROM trip_reports WHERE batch = 1", &s.PhaseOneReports},
		{"SELECT COUNT(*) FROM trip_reports WHERE batch = 2", &s.PhaseTwoReports},
		{"SELECT COUNT(*) FROM revisions", &s.Revisions},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
