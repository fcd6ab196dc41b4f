package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Alias1177/Allocator/internal/model"
)

var schema = []string{`
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id         TEXT PRIMARY KEY,
		industry   TEXT NOT NULL,
		label      TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS analysis_rows (
		run_id     TEXT NOT NULL REFERENCES analysis_runs(id),
		table_name TEXT NOT NULL,
		row_num    INTEGER NOT NULL,
		payload    TEXT NOT NULL,
		PRIMARY KEY (run_id, table_name, row_num)
	)`,
}

// RunInfo identifies the run whose tables a SQLSink stores
type RunInfo struct {
	ID       string
	Industry string
	Label    string
}

// rowBatchSize keeps a multi-row insert at 2000 placeholders, well under
// the PostgreSQL and SQLite bind variable limits.
const rowBatchSize = 500

// SQLSink stores tables as JSON rows keyed by run and table name
type SQLSink struct {
	db        *sqlx.DB
	run       RunInfo
	timeout   time.Duration
	batchSize int
}

// NewSQLSink creates a sink writing rows for run into db.
// timeout bounds each table write; zero means five minutes.
func NewSQLSink(db *sqlx.DB, run RunInfo, timeout time.Duration) *SQLSink {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &SQLSink{db: db, run: run, timeout: timeout, batchSize: rowBatchSize}
}

// OpenPostgres connects to PostgreSQL and creates the tables if they don't exist
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file and its tables
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the run tables
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// WriteTable stores table in a single transaction, inserting rows in batches
func (s *SQLSink) WriteTable(ctx context.Context, table *model.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO analysis_runs (id, industry, label, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		s.run.ID, s.run.Industry, s.run.Label, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for from := 0; from < len(table.Rows); from += s.batchSize {
		to := min(from+s.batchSize, len(table.Rows))
		args := make([]any, 0, 4*(to-from))
		for i := from; i < to; i++ {
			payload, err := encodeRow(table.Columns, table.Rows[i])
			if err != nil {
				return fmt.Errorf("failed to encode %s row %d: %w", table.Name, i, err)
			}
			args = append(args, s.run.ID, table.Name, i, payload)
		}
		if _, err := tx.ExecContext(ctx, s.insertRows(to-from), args...); err != nil {
			return fmt.Errorf("failed to insert %s rows %d-%d: %w", table.Name, from, to-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table.Name, err)
	}
	return nil
}

// insertRows builds a single INSERT for n rows
func (s *SQLSink) insertRows(n int) string {
	values := strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?), ", n), ", ")
	return s.db.Rebind("INSERT INTO analysis_rows (run_id, table_name, row_num, payload) VALUES " + values)
}

// encodeRow renders a row as a JSON object keyed by column name.
// NaN and absent cells become null; infinities become "+Inf"/"-Inf".
func encodeRow(cols []model.Column, row []any) (string, error) {
	obj := make(map[string]any, len(cols))
	for i, c := range cols {
		var v any
		if i < len(row) {
			v = row[i]
		}
		switch cell := v.(type) {
		case float64:
			switch {
			case math.IsNaN(cell):
				v = nil
			case math.IsInf(cell, 1):
				v = "+Inf"
			case math.IsInf(cell, -1):
				v = "-Inf"
			}
		case time.Time:
			v = cell.Format(model.DateLayout)
		}
		obj[c.Name] = v
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
