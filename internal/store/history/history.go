package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"guestlens/internal/model"
	"guestlens/internal/stats"
)

// ErrNoSnapshot is returned when an owner has no stored analysis yet.
var ErrNoSnapshot = errors.New("history: no snapshot")

// DB wraps a SQLite database holding analysis snapshots and daily stats.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  owner_id INTEGER NOT NULL,
	  run_id TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  guests TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_owner ON snapshots(owner_id, created_at);
	CREATE TABLE IF NOT EXISTS daily_stats (
	  owner_id INTEGER NOT NULL,
	  date TEXT NOT NULL,
	  payload TEXT NOT NULL,
	  PRIMARY KEY (owner_id, date)
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT
	);
	`)
	return err
}

// SaveSnapshot stores one completed analysis for an owner.
func (d *DB) SaveSnapshot(ctx context.Context, ownerID int64, runID string, at time.Time, guests []model.Guest) error {
	b, err := json.Marshal(guests)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO snapshots(owner_id, run_id, created_at, guests) VALUES(?,?,?,?)`,
		ownerID, runID, at.Unix(), string(b))
	return err
}

// Snapshot is one stored analysis result.
type Snapshot struct {
	RunID     string
	CreatedAt time.Time
	Guests    []model.Guest
}

// LatestSnapshot returns the most recent stored analysis for an owner.
func (d *DB) LatestSnapshot(ctx context.Context, ownerID int64) (Snapshot, error) {
	var snap Snapshot
	var created int64
	var payload string
	err := d.sql.QueryRowContext(ctx,
		`SELECT run_id, created_at, guests FROM snapshots WHERE owner_id=? ORDER BY created_at DESC, id DESC LIMIT 1`,
		ownerID).Scan(&snap.RunID, &created, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, err
	}
	snap.CreatedAt = time.Unix(created, 0).UTC()
	if err := json.Unmarshal([]byte(payload), &snap.Guests); err != nil {
		return snap, err
	}
	return snap, nil
}

// SaveDailyStats upserts the summary for one owner and day.
func (d *DB) SaveDailyStats(ctx context.Context, ownerID int64, day stats.Daily) error {
	b, err := json.Marshal(day)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO daily_stats(owner_id, date, payload) VALUES(?,?,?)
		 ON CONFLICT(owner_id, date) DO UPDATE SET payload=excluded.payload`,
		ownerID, day.Date, string(b))
	return err
}

// LoadDailyStats returns summaries for [from, to] inclusive, oldest first.
func (d *DB) LoadDailyStats(ctx context.Context, ownerID int64, from, to time.Time) ([]stats.Daily, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT payload FROM daily_stats WHERE owner_id=? AND date>=? AND date<=? ORDER BY date`,
		ownerID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []stats.Daily
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var day stats.Daily
		if err := json.Unmarshal([]byte(payload), &day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// SaveCursor stores an opaque bookkeeping value (e.g. last refresh time).
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	return err
}

// LoadCursor returns the stored value for key, empty when unset.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var value string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
