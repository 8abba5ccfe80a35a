package database

import (
	"database/sql"

	"github.com/TobiSchelling/tripcorpus/internal/dosechart"
)

// ReplaceDosecharts replaces every stored dose chart.
func (db *DB) ReplaceDosecharts(charts map[string]dosechart.Chart) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM dosages"); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM durations"); err != nil {
			return err
		}
		for substance, chart := range charts {
			for route, rec := range chart {
				for level, dose := range rec.Dosage {
					if _, err := tx.Exec(
						`INSERT INTO dosages (substance, route, level, quantity, unit) VALUES (?, ?, ?, ?, ?)`,
						substance, route, string(level), dose.Quantity, dose.Unit,
					); err != nil {
						return err
					}
				}
				for phase, r := range rec.Duration {
					if _, err := tx.Exec(
						`INSERT INTO durations (substance, route, phase, low, high, unit) VALUES (?, ?, ?, ?, ?, ?)`,
						substance, route, string(phase), r.Low, r.High, r.Unit,
					); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func record(charts map[string]dosechart.Chart, substance, route string) dosechart.Record {
	chart, ok := charts[substance]
	if !ok {
		chart = dosechart.Chart{}
		charts[substance] = chart
	}
	rec, ok := chart[route]
	if !ok {
		rec = dosechart.Record{
			Dosage:   map[dosechart.Level]dosechart.Dose{},
			Duration: map[dosechart.Phase]dosechart.Range{},
		}
		chart[route] = rec
	}
	return rec
}

// GetDosecharts returns every stored dose chart keyed by substance.
func (db *DB) GetDosecharts() (map[string]dosechart.Chart, error) {
	charts := make(map[string]dosechart.Chart)

	rows, err := db.conn.Query("SELECT substance, route, level, quantity, unit FROM dosages")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var substance, route, level string
		var dose dosechart.Dose
		if err := rows.Scan(&substance, &route, &level, &dose.Quantity, &dose.Unit); err != nil {
			rows.Close()
			return nil, err
		}
		record(charts, substance, route).Dosage[dosechart.Level(level)] = dose
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.conn.Query("SELECT substance, route, phase, low, high, unit FROM durations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var substance, route, phase string
		var r dosechart.Range
		if err := rows.Scan(&substance, &route, &phase, &r.Low, &r.High, &r.Unit); err != nil {
			return nil, err
		}
		record(charts, substance, route).Duration[dosechart.Phase(phase)] = r
	}
	return charts, rows.Err()
}

// ReplaceEffects replaces every stored effect list.
func (db *DB) ReplaceEffects(effects map[string][]string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM effects"); err != nil {
			return err
		}
		for substance, list := range effects {
			for i, effect := range list {
				if _, err := tx.Exec(
					"INSERT INTO effects (substance, position, effect) VALUES (?, ?, ?)",
					substance, i, effect,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetEffects returns every stored effect list in extraction order.
func (db *DB) GetEffects() (map[string][]string, error) {
	rows, err := db.conn.Query("SELECT substance, effect FROM effects ORDER BY substance, position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	effects := make(map[string][]string)
	for rows.Next() {
		var substance, effect string
		if err := rows.Scan(&substance, &effect); err != nil {
			return nil, err
		}
		effects[substance] = append(effects[substance], effect)
	}
	return effects, rows.Err()
}
