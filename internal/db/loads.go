package db

import (
	"time"

	"material-router/internal/catalog"
)

// LoadRecord is one catalog load history entry.
type LoadRecord struct {
	ID         int64  `json:"id"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Category   string `json:"category"`
	Materials  int    `json:"materials"`
	Items      int    `json:"items"`
	Rejected   int    `json:"rejected"`
	Skipped    int    `json:"skipped"`
	DurationMs int64  `json:"duration_ms"`
}

// InsertLoad records a catalog load and returns its ID (0 on failure).
func (d *DB) InsertLoad(path, category string, stats catalog.Stats, took time.Duration) int64 {
	result, err := d.sql.Exec(
		`INSERT INTO catalog_loads (timestamp, path, category, materials, items, rejected, skipped, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Format(time.RFC3339), path, category,
		stats.Materials, stats.Items, stats.RejectedCoordinates, stats.SkippedEntries, took.Milliseconds(),
	)
	if err != nil {
		return 0
	}
	id, _ := result.LastInsertId()
	return id
}

// GetLoads returns the last N load records (newest first).
func (d *DB) GetLoads(limit int) []LoadRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(
		`SELECT id, timestamp, path, category, materials, items, rejected, skipped, COALESCE(duration_ms, 0)
		 FROM catalog_loads ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return []LoadRecord{}
	}
	defer rows.Close()

	var records []LoadRecord
	for rows.Next() {
		var r LoadRecord
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Path, &r.Category, &r.Materials, &r.Items, &r.Rejected, &r.Skipped, &r.DurationMs); err != nil {
			continue
		}
		records = append(records, r)
	}
	if records == nil {
		return []LoadRecord{}
	}
	return records
}

// ClearLoads deletes all load records.
func (d *DB) ClearLoads() error {
	_, err := d.sql.Exec("DELETE FROM catalog_loads")
	return err
}
