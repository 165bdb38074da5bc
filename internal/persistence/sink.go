// Package persistence provides SQLite-based observability storage: agent
// outcome records and periodic ledger snapshots. Writes happen on a
// background goroutine so recording never blocks an agent cycle.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/polis/internal/ledger"
)

// recordBuffer is the outcome queue depth. When the writer falls behind,
// further records are dropped rather than stalling the simulation.
const recordBuffer = 1024

// OutcomeRecord is one stored agent outcome.
type OutcomeRecord struct {
	AgentID     int64  `db:"agent_id"`
	Tick        uint64 `db:"tick"`
	Topic       string `db:"topic"`
	Description string `db:"description"`
}

// Sink wraps a SQLite connection for outcome and snapshot storage.
type Sink struct {
	conn    *sqlx.DB
	queue   chan OutcomeRecord
	done    chan struct{}
	dropped atomic.Uint64
}

// Open opens or creates a SQLite database at the given path and starts the
// background writer.
func Open(path string) (*Sink, error) {
	// modernc pragma syntax; WAL plus a busy timeout so the background
	// writer and snapshot saves can interleave without SQLITE_BUSY.
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Sink{
		conn:  conn,
		queue: make(chan OutcomeRecord, recordBuffer),
		done:  make(chan struct{}),
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	go s.writer()
	return s, nil
}

func (s *Sink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		topic TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actors (
		id INTEGER NOT NULL,
		period INTEGER NOT NULL,
		kind TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		employees_json TEXT NOT NULL,
		PRIMARY KEY (id, period)
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_tick ON outcomes(tick);
	CREATE INDEX IF NOT EXISTS idx_outcomes_agent ON outcomes(agent_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Record queues one outcome record. It never blocks: when the queue is full
// the record is dropped and counted.
func (s *Sink) Record(agentID int64, topic, description string, timestamp uint64) {
	select {
	case s.queue <- OutcomeRecord{AgentID: agentID, Tick: timestamp, Topic: topic, Description: description}:
	default:
		s.dropped.Add(1)
	}
}

// writer drains the queue until Close.
func (s *Sink) writer() {
	defer close(s.done)
	for row := range s.queue {
		_, err := s.conn.Exec(
			"INSERT INTO outcomes (agent_id, tick, topic, description) VALUES (?, ?, ?, ?)",
			row.AgentID, row.Tick, row.Topic, row.Description,
		)
		if err != nil {
			slog.Warn("outcome write failed", "agent", row.AgentID, "error", err)
		}
	}
}

// SaveSnapshot writes a full ledger snapshot for one period.
func (s *Sink) SaveSnapshot(period uint64, snaps []ledger.ActorSnapshot) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO actors
		(id, period, kind, fields_json, employees_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, snap := range snaps {
		fieldsJSON, _ := json.Marshal(snap.Fields)
		employeesJSON, _ := json.Marshal(snap.Employees)
		_, err := stmt.Exec(
			snap.ID, period, ledger.KindName(snap.Kind),
			string(fieldsJSON), string(employeesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert actor %d: %w", snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return s.SaveMeta("last_period", fmt.Sprintf("%d", period))
}

// SaveMeta stores a key-value pair in simulation metadata.
func (s *Sink) SaveMeta(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (s *Sink) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// RecentOutcomes returns the most recent N outcome records.
func (s *Sink) RecentOutcomes(limit int) ([]OutcomeRecord, error) {
	var rows []OutcomeRecord
	err := s.conn.Select(&rows,
		"SELECT agent_id, tick, topic, description FROM outcomes ORDER BY id DESC LIMIT ?",
		limit,
	)
	return rows, err
}

// Close flushes queued records and closes the database.
func (s *Sink) Close() error {
	close(s.queue)
	<-s.done
	if n := s.dropped.Load(); n > 0 {
		slog.Warn("outcome records dropped under backpressure", "count", n)
	}
	return s.conn.Close()
}
