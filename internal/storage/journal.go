package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

const journalSchemaVersion = "1"

// FillJournal stores every simulated fill in SQLite. The snapshot only
// keeps a short ring of recent fills; the journal is the full history.
type FillJournal struct {
	db    *sql.DB
	runID string
}

// NewFillJournal opens (or creates) the journal database with WAL mode.
// Each process run is tagged with a fresh run id in the metadata table.
func NewFillJournal(dbPath string) (*FillJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			qty REAL NOT NULL,
			notional_usd REAL NOT NULL,
			position_id INTEGER NOT NULL,
			realized_pnl REAL NOT NULL,
			ts INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills(ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create fills table: %w", err)
	}

	j := &FillJournal{db: db, runID: uuid.NewString()}

	now := time.Now().Unix()
	ctx := context.Background()
	if err := j.upsertMetadata(ctx, "schema_version", journalSchemaVersion, now); err != nil {
		db.Close()
		return nil, err
	}
	if err := j.upsertMetadata(ctx, "last_run_id", j.runID, now); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// RunID identifies this process run in journal rows.
func (j *FillJournal) RunID() string { return j.runID }

// Append stores one fill event. Satisfies the engine's fill sink.
func (j *FillJournal) Append(ctx context.Context, ev domain.FillEvent) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO fills (id, run_id, side, price, qty, notional_usd, position_id, realized_pnl, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		ev.ID, j.runID, string(ev.Side), ev.Price, ev.Qty, ev.NotionalUSD, ev.PositionID, ev.RealizedPnl, ev.TsUnixM,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}
	return nil
}

// Recent returns up to limit fills, newest first.
func (j *FillJournal) Recent(ctx context.Context, limit int) ([]domain.FillEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, side, price, qty, notional_usd, position_id, realized_pnl, ts FROM fills ORDER BY ts DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.FillEvent
	for rows.Next() {
		var ev domain.FillEvent
		var side string
		if err := rows.Scan(&ev.ID, &side, &ev.Price, &ev.Qty, &ev.NotionalUSD, &ev.PositionID, &ev.RealizedPnl, &ev.TsUnixM); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		ev.Side = domain.Side(side)
		fills = append(fills, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return fills, nil
}

// Count returns the total number of journaled fills.
func (j *FillJournal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fills").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fills: %w", err)
	}
	return n, nil
}

func (j *FillJournal) upsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata retrieves one metadata value; empty string when absent.
func (j *FillJournal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (j *FillJournal) Close() error {
	return j.db.Close()
}
