// Package persistence implements the durable signal store (§6, §4.7
// cross-session idempotency): a UNIQUE(plan_id, state, timestamp)
// constraint blocks re-emission across process restarts, plus the
// query and housekeeping methods the spec names (`by plan / state /
// time range`, `cleanup_older_than`).
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"

	"breakoutengine/pkg/types"
)

// Store is the SQLite-backed SignalStore. The pool is limited to one
// open connection, so writes within the process are serialized on it;
// each write is a single statement and no explicit (exclusive)
// transaction is opened. SQLite's own file locking serializes writers
// across processes sharing a DSN.
type Store struct {
	db *sql.DB
}

// Open creates/attaches to the SQLite database at dsn and ensures the
// schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single-writer discipline: the engine is single-threaded
	// cooperative (§5), so there is never a reason for more than one
	// concurrent connection issuing writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS signals (
	id               TEXT PRIMARY KEY,
	plan_id          TEXT NOT NULL,
	instrument_id    TEXT NOT NULL,
	state            TEXT NOT NULL,
	timestamp        TEXT NOT NULL,
	protocol_version TEXT NOT NULL,
	payload          TEXT NOT NULL,
	delivery_status  TEXT NOT NULL DEFAULT 'pending',
	created_at       TEXT NOT NULL,
	UNIQUE(plan_id, state, timestamp)
);
CREATE INDEX IF NOT EXISTS idx_signals_plan ON signals(plan_id);
CREATE INDEX IF NOT EXISTS idx_signals_state ON signals(state);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp);
`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// IsDuplicate reports whether a record already exists for the
// idempotency tuple (plan_id, state, timestamp).
func (s *Store) IsDuplicate(planID, state string, ts time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM signals WHERE plan_id = ? AND state = ? AND timestamp = ?`,
		planID, state, formatTS(ts),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is_duplicate query: %w", err)
	}
	return count > 0, nil
}

// StoreSignal inserts a new signal record, returning its generated id.
// A UNIQUE-constraint violation (a racing duplicate write) is treated
// as "already stored" rather than an error — the law of idempotent
// emission holds either way.
func (s *Store) StoreSignal(sig types.Signal) (string, error) {
	payload, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("marshal signal: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO signals (id, plan_id, instrument_id, state, timestamp, protocol_version, payload, delivery_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		id, sig.PlanID, sig.InstrumentID, sig.State, formatTS(sig.Timestamp), sig.ProtocolVersion, string(payload), formatTS(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("store signal: %w", err)
	}
	return id, nil
}

// UpdateDeliveryStatus records the outcome of the most recent delivery
// attempt for a stored signal.
func (s *Store) UpdateDeliveryStatus(id string, status string) error {
	_, err := s.db.Exec(`UPDATE signals SET delivery_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	return nil
}

// ByPlan returns every stored signal for a plan, newest first.
func (s *Store) ByPlan(planID string) ([]types.Signal, error) {
	return s.query(`SELECT payload FROM signals WHERE plan_id = ? ORDER BY timestamp DESC`, planID)
}

// ByState returns every stored signal in a given lifecycle state.
func (s *Store) ByState(state string) ([]types.Signal, error) {
	return s.query(`SELECT payload FROM signals WHERE state = ? ORDER BY timestamp DESC`, state)
}

// ByTimeRange returns every stored signal with timestamp in [from, to].
func (s *Store) ByTimeRange(from, to time.Time) ([]types.Signal, error) {
	return s.query(`SELECT payload FROM signals WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`, formatTS(from), formatTS(to))
}

func (s *Store) query(q string, args ...any) ([]types.Signal, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []types.Signal
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		var sig types.Signal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("unmarshal signal row: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// CleanupOlderThan deletes signal records older than the retention
// window, returning the number of rows removed. Mirrors the original
// engine's scheduled housekeeping task (§6).
func (s *Store) CleanupOlderThan(days int) (int64, error) {
	cutoff := formatTS(time.Now().AddDate(0, 0, -days))
	res, err := s.db.Exec(`DELETE FROM signals WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	return res.RowsAffected()
}

func formatTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
