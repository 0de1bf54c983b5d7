package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"powerplot/internal/models"
)

// ErrRunNotFound is returned when a run id is not in the store
var ErrRunNotFound = errors.New("run not found")

// fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and runs migrations
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

// migrate creates the necessary tables if they don't exist
func (db *DB) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		log_dir TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS summaries (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		protocol TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		baseline_ma REAL NOT NULL,
		mean_ma REAL NOT NULL,
		stddev_ma REAL NOT NULL,
		energy_uah REAL NOT NULL,
		duration_s REAL NOT NULL,
		source TEXT NOT NULL,
		UNIQUE(run_id, protocol, size_bytes)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := db.conn.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// SaveRun stores a run and its summaries in one transaction.
// An empty run id is replaced with a fresh uuid; the stored id is returned.
func (db *DB) SaveRun(run models.Run, summaries []models.Summary) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(timeLayout)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs (id, log_dir, created_at) VALUES (?, ?, ?)`,
		run.ID, run.LogDir, run.CreatedAt); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	insertStmt, err := tx.Prepare(`
		INSERT INTO summaries (run_id, protocol, size_bytes, samples, baseline_ma, mean_ma, stddev_ma, energy_uah, duration_s, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer insertStmt.Close()

	for _, s := range summaries {
		if _, err := insertStmt.Exec(run.ID, string(s.Protocol), int64(s.SizeBytes), s.Samples,
			s.BaselineMA, s.MeanMA, s.StdDevMA, s.EnergyUAh, s.DurationSecs, s.Source); err != nil {
			return "", fmt.Errorf("failed to insert %s %s summary: %w", s.Protocol, s.SizeBytes.Label(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns every stored run, newest first
func (db *DB) ListRuns() ([]models.Run, error) {
	rows, err := db.conn.Query(`
		SELECT r.id, r.log_dir, r.created_at, COUNT(s.run_id)
		FROM runs r
		LEFT JOIN summaries s ON s.run_id = r.id
		GROUP BY r.id, r.log_dir, r.created_at
		ORDER BY r.created_at DESC, r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.LogDir, &r.CreatedAt, &r.Summaries); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRunSummaries returns the summaries of one run ordered by protocol and size
func (db *DB) GetRunSummaries(runID string) ([]models.Summary, error) {
	var exists int
	err := db.conn.QueryRow(`SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	return db.querySummaries(`WHERE run_id = ?`, runID)
}

// LatestSummaries returns the summaries of the most recent run, or none when the store is empty
func (db *DB) LatestSummaries() ([]models.Summary, error) {
	return db.querySummaries(`WHERE run_id = (SELECT id FROM runs ORDER BY created_at DESC, id LIMIT 1)`)
}

func (db *DB) querySummaries(where string, args ...interface{}) ([]models.Summary, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, protocol, size_bytes, samples, baseline_ma, mean_ma, stddev_ma, energy_uah, duration_s, source
		FROM summaries `+where+`
		ORDER BY protocol, size_bytes
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	summaries := []models.Summary{}
	for rows.Next() {
		var s models.Summary
		var proto string
		var size int64
		if err := rows.Scan(&s.RunID, &proto, &size, &s.Samples, &s.BaselineMA, &s.MeanMA,
			&s.StdDevMA, &s.EnergyUAh, &s.DurationSecs, &s.Source); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.Protocol = models.Protocol(proto)
		s.SizeBytes = models.PayloadSize(size)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return summaries, nil
}
