// Package storage keeps a local run ledger: one row per workflow run
// and one per processed source document. The sheet remains the system
// of record for dedup; the ledger only serves run history inspection.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"grnflow/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	_, err := d.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  workflow TEXT NOT NULL,
  startedAt TEXT NOT NULL,
  finishedAt TEXT NOT NULL,
  status TEXT NOT NULL,
  statsJson TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  driveFileId TEXT,
  rows INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  processedAt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	return err
}

func (d *DB) InsertRun(workflow, startedAt, finishedAt, status string, stats map[string]int) error {
	statsJSON, _ := json.Marshal(stats)
	_, err := d.conn.Exec(
		`INSERT INTO runs (workflow, startedAt, finishedAt, status, statsJson) VALUES (?, ?, ?, ?, ?)`,
		workflow, startedAt, finishedAt, status, string(statsJSON),
	)
	return err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRecord, error) {
	rows, err := d.conn.Query(
		`SELECT id, workflow, startedAt, finishedAt, status, statsJson FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRecord
	for rows.Next() {
		var r internal.RunRecord
		if err := rows.Scan(&r.ID, &r.Workflow, &r.StartedAt, &r.FinishedAt, &r.Status, &r.StatsJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) RecordFile(name, driveFileID string, rowCount int, status, processedAt string) error {
	_, err := d.conn.Exec(`
INSERT INTO files (name, driveFileId, rows, status, processedAt) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  driveFileId = excluded.driveFileId,
  rows = excluded.rows,
  status = excluded.status,
  processedAt = excluded.processedAt
`, name, driveFileID, rowCount, status, processedAt)
	return err
}

func (d *DB) GetFile(name string) (*internal.FileRecord, error) {
	var f internal.FileRecord
	err := d.conn.QueryRow(
		`SELECT id, name, driveFileId, rows, status, processedAt FROM files WHERE name = ?`, name,
	).Scan(&f.ID, &f.Name, &f.DriveFileID, &f.Rows, &f.Status, &f.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
