package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/tablewatch/dbopen"
	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// Schema for the SQLite event store.
const Schema = `
CREATE TABLE IF NOT EXISTS hunts (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	state      TEXT NOT NULL,
	attempts   INTEGER NOT NULL,
	clicks     INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS seatings (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	seats      TEXT NOT NULL DEFAULT '{}',
	record     INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rounds (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	round      INTEGER NOT NULL,
	previous   INTEGER NOT NULL,
	seats      TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, created_at);
`

// SQLite stores events in a database opened with dbopen. The caller owns
// the *sql.DB unless the sink was created with OpenSQLite.
type SQLite struct {
	db   *sql.DB
	owns bool
}

// NewSQLite wraps an already open database and applies Schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("sqlite sink: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB returns the underlying database.
func (s *SQLite) DB() *sql.DB { return s.db }

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: %w", err)
	}
	return &SQLite{db: db, owns: true}, nil
}

func (s *SQLite) SendHunt(ctx context.Context, h event.Hunt) error {
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO hunts (id, session_id, state, attempts, clicks, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.SessionID, h.State, h.Attempts, h.Clicks, h.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite sink: insert hunt: %w", err)
	}
	return nil
}

func (s *SQLite) SendSeating(ctx context.Context, st event.Seating) error {
	seats, err := json.Marshal(st.Seats)
	if err != nil {
		return fmt.Errorf("sqlite sink: marshal seats: %w", err)
	}
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO seatings (id, session_id, seats, record, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.SessionID, string(seats), st.Record, st.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite sink: insert seating: %w", err)
	}
	return nil
}

func (s *SQLite) SendRound(ctx context.Context, r event.RoundStarted) error {
	seats, err := json.Marshal(r.Seats)
	if err != nil {
		return fmt.Errorf("sqlite sink: marshal seats: %w", err)
	}
	_, err = dbopen.Exec(ctx, s.db, `
		INSERT INTO rounds (id, session_id, round, previous, seats, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Round, r.Previous, string(seats), r.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite sink: insert round: %w", err)
	}
	return nil
}

// Rounds returns the rounds recorded for a session, oldest first. An empty
// sessionID returns the most recent rounds across sessions, up to limit.
func (s *SQLite) Rounds(ctx context.Context, sessionID string, limit int) ([]event.RoundStarted, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if sessionID != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, session_id, round, previous, seats, created_at
			FROM rounds WHERE session_id = ?
			ORDER BY created_at, id LIMIT ?`, sessionID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT * FROM (
				SELECT id, session_id, round, previous, seats, created_at
				FROM rounds ORDER BY created_at DESC, id DESC LIMIT ?
			) ORDER BY created_at, id`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: query rounds: %w", err)
	}
	defer rows.Close()

	var out []event.RoundStarted
	for rows.Next() {
		var r event.RoundStarted
		var seats string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Round, &r.Previous, &seats, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(seats), &r.Seats); err != nil {
			return nil, fmt.Errorf("sqlite sink: decode seats %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.owns {
		return s.db.Close()
	}
	return nil
}
