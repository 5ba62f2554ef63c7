package logsink

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunIndex is a small sqlite catalogue of every run directory this
// process has written, so a log-base directory with many runs can be
// browsed without walking the filesystem. Grounded on the teacher's
// pkg/gps/local_cell_database.go (sql.Open("sqlite3", ...), fixed
// schema-on-open, indexed lookups).
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens (creating if needed) the sqlite index at path.
func OpenRunIndex(path string) (*RunIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}

	ri := &RunIndex{db: db}
	if err := ri.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize run index: %w", err)
	}
	return ri, nil
}

func (ri *RunIndex) init() error {
	_, err := ri.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		directory TEXT NOT NULL UNIQUE,
		dci_records INTEGER DEFAULT 0,
		metric_records INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`)
	return err
}

// BeginRun records the start of a new run and returns its row id.
func (ri *RunIndex) BeginRun(directory string, startedAt time.Time) (int64, error) {
	res, err := ri.db.Exec(`INSERT INTO runs (started_at, directory) VALUES (?, ?)`, startedAt, directory)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// EndRun records the end of a run and its final record counts.
func (ri *RunIndex) EndRun(id int64, endedAt time.Time, dciRecords, metricRecords int64) error {
	_, err := ri.db.Exec(`UPDATE runs SET ended_at = ?, dci_records = ?, metric_records = ? WHERE id = ?`,
		endedAt, dciRecords, metricRecords, id)
	return err
}

func (ri *RunIndex) Close() error {
	return ri.db.Close()
}
