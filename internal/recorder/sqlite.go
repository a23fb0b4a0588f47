package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SignalDesk/internal/model"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id          TEXT PRIMARY KEY,
			started_at      INTEGER NOT NULL,
			finished_at     INTEGER NOT NULL,
			symbol_count    INTEGER NOT NULL,
			row_count       INTEGER NOT NULL,
			failed_count    INTEGER NOT NULL,
			delivery_errors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_outcomes (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL REFERENCES runs(run_id),
			symbol  TEXT NOT NULL,
			status  TEXT NOT NULL,
			error   TEXT,
			as_of   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON symbol_outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_symbol ON symbol_outcomes(symbol, status)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its symbol outcomes in one transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run model.RunSummary, outcomes []SymbolOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, finished_at, symbol_count, row_count, failed_count, delivery_errors)
		VALUES (?,?,?,?,?,?,?)`,
		run.RunID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Symbols, run.Rows, run.Failed, strings.Join(run.DeliveryErrors, "\n"),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbol_outcomes
		(run_id, symbol, status, error, as_of) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var asOf sql.NullInt64
		if !o.AsOf.IsZero() {
			asOf = sql.NullInt64{Int64: o.AsOf.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.RunID, o.Symbol, o.Status, o.Error, asOf); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Symbol, err)
		}
	}
	return tx.Commit()
}

// LastRun returns the most recently finished run.
func (r *SQLiteRecorder) LastRun(ctx context.Context) (*model.RunSummary, error) {
	var (
		run            model.RunSummary
		started        int64
		finished       int64
		deliveryErrors sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT run_id, started_at, finished_at, symbol_count, row_count, failed_count, delivery_errors
		FROM runs ORDER BY finished_at DESC LIMIT 1`).
		Scan(&run.RunID, &started, &finished, &run.Symbols, &run.Rows, &run.Failed, &deliveryErrors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = time.UnixMilli(started).UTC()
	run.FinishedAt = time.UnixMilli(finished).UTC()
	if deliveryErrors.String != "" {
		run.DeliveryErrors = strings.Split(deliveryErrors.String, "\n")
	}
	return &run, nil
}

// SymbolHistory returns the last n outcomes of symbol, newest first.
func (r *SQLiteRecorder) SymbolHistory(ctx context.Context, symbol string, n int) ([]SymbolOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT o.symbol, o.status, o.error, o.as_of
		FROM symbol_outcomes o JOIN runs r ON r.run_id = o.run_id
		WHERE o.symbol = ? ORDER BY r.finished_at DESC LIMIT ?`, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("query symbol history: %w", err)
	}
	defer rows.Close()

	var out []SymbolOutcome
	for rows.Next() {
		var (
			o      SymbolOutcome
			errTxt sql.NullString
			asOf   sql.NullInt64
		)
		if err := rows.Scan(&o.Symbol, &o.Status, &errTxt, &asOf); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Error = errTxt.String
		if asOf.Valid {
			o.AsOf = time.Unix(asOf.Int64, 0).UTC()
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
