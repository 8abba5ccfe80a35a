package database

import (
	"database/sql"

	"github.com/TobiSchelling/tripcorpus/internal/dataset"
)

// ReplaceBatch replaces the stored trip reports of one phase.
func (db *DB) ReplaceBatch(phase int, b dataset.Batch) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM trip_reports WHERE batch = ?", phase); err != nil {
			return err
		}
		stmt, err := tx.Prepare("INSERT INTO trip_reports (batch, substance, body) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range b.Rows() {
			if _, err := stmt.Exec(phase, r.Substance, r.Text); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBatch returns the stored trip reports of one phase in insertion order.
func (db *DB) GetBatch(phase int) (dataset.Batch, error) {
	rows, err := db.conn.Query(
		"SELECT substance, body FROM trip_reports WHERE batch = ? ORDER BY id", phase,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []dataset.Report
	for rows.Next() {
		var r dataset.Report
		if err := rows.Scan(&r.Substance, &r.Text); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.GroupRows(reports), nil
}

// CountReportsBySubstance returns the number of stored reports per
// substance across both phases.
func (db *DB) CountReportsBySubstance() (map[string]int, error) {
	rows, err := db.conn.Query("SELECT substance, COUNT(*) FROM trip_reports GROUP BY substance")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var substance string
		var n int
		if err := rows.Scan(&substance, &n); err != nil {
			return nil, err
		}
		counts[substance] = n
	}
	return counts, rows.Err()
}

// ReplaceStopWords replaces the stored stop word set.
func (db *DB) ReplaceStopWords(words []string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM stop_words"); err != nil {
			return err
		}
		for _, w := range words {
			if _, err := tx.Exec("INSERT OR IGNORE INTO stop_words (word) VALUES (?)", w); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetStopWords returns the stored stop words, sorted.
func (db *DB) GetStopWords() ([]string, error) {
	rows, err := db.conn.Query("SELECT word FROM stop_words ORDER BY word")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
