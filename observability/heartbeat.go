// Package observability records the liveness of a running watcher.
//
// A HeartbeatWriter periodically stores one row per beat in the
// session_heartbeats table: runtime health plus the session phase. A
// spectator session can sit for hours between rounds, so the rows tell a
// silent but alive session apart from a dead one.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/hazyhaar/tablewatch/dbopen"
)

// Schema creates the heartbeat table.
const Schema = `
CREATE TABLE IF NOT EXISTS session_heartbeats (
    session_id       TEXT NOT NULL,
    hostname         TEXT NOT NULL,
    pid              INTEGER NOT NULL,
    phase            TEXT NOT NULL,
    timestamp        INTEGER NOT NULL,
    goroutines_count INTEGER,
    memory_alloc_mb  REAL,
    memory_sys_mb    REAL,
    gc_count         INTEGER
);
CREATE INDEX IF NOT EXISTS idx_heartbeats_session_time
    ON session_heartbeats(session_id, timestamp DESC);
`

// RuntimeMetrics captures Go process health at a point in time.
type RuntimeMetrics struct {
	GoroutinesCount int     `json:"goroutines_count"`
	MemoryAllocMB   float64 `json:"memory_alloc_mb"`
	MemorySysMB     float64 `json:"memory_sys_mb"`
	GCCount         uint32  `json:"gc_count"`
}

// CollectRuntimeMetrics reads current Go runtime stats.
func CollectRuntimeMetrics() RuntimeMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeMetrics{
		GoroutinesCount: runtime.NumGoroutine(),
		MemoryAllocMB:   float64(mem.Alloc) / 1024 / 1024,
		MemorySysMB:     float64(mem.Sys) / 1024 / 1024,
		GCCount:         mem.NumGC,
	}
}

// HeartbeatWriter writes periodic liveness rows for one session.
type HeartbeatWriter struct {
	db        *sql.DB
	sessionID string
	phase     func() string
	hostname  string
	pid       int
	interval  time.Duration
	logger    *slog.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewHeartbeatWriter creates a writer and applies Schema. phase reports the
// session phase at each beat; nil records "unknown". Recommended interval:
// 15s.
func NewHeartbeatWriter(db *sql.DB, sessionID string, phase func() string, interval time.Duration, logger *slog.Logger) (*HeartbeatWriter, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("observability: schema: %w", err)
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if phase == nil {
		phase = func() string { return "unknown" }
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatWriter{
		db:        db,
		sessionID: sessionID,
		phase:     phase,
		hostname:  hostname,
		pid:       os.Getpid(),
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the heartbeat goroutine. It writes one heartbeat
// immediately, then one per interval until Stop or ctx is done.
func (hw *HeartbeatWriter) Start(ctx context.Context) {
	go hw.loop(ctx)
}

// Stop signals the heartbeat goroutine to exit and waits for it.
func (hw *HeartbeatWriter) Stop() {
	close(hw.stop)
	<-hw.done
}

// WriteHeartbeat writes a single row with current runtime metrics.
func (hw *HeartbeatWriter) WriteHeartbeat(ctx context.Context) error {
	m := CollectRuntimeMetrics()
	_, err := dbopen.Exec(ctx, hw.db, `
		INSERT INTO session_heartbeats (
			session_id, hostname, pid, phase, timestamp,
			goroutines_count, memory_alloc_mb, memory_sys_mb, gc_count
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		hw.sessionID, hw.hostname, hw.pid, hw.phase(), time.Now().Unix(),
		m.GoroutinesCount, m.MemoryAllocMB, m.MemorySysMB, m.GCCount)
	if err != nil {
		return fmt.Errorf("observability: insert heartbeat: %w", err)
	}
	return nil
}

func (hw *HeartbeatWriter) loop(ctx context.Context) {
	defer close(hw.done)
	ticker := time.NewTicker(hw.interval)
	defer ticker.Stop()

	hw.beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hw.stop:
			return
		case <-ticker.C:
			hw.beat(ctx)
		}
	}
}

func (hw *HeartbeatWriter) beat(ctx context.Context) {
	if err := hw.WriteHeartbeat(ctx); err != nil && ctx.Err() == nil {
		hw.logger.Error("observability: heartbeat write failed", "error", err, "session", hw.sessionID)
	}
}

// HeartbeatStatus is the latest heartbeat of a session with its staleness.
type HeartbeatStatus struct {
	SessionID       string         `json:"session_id"`
	Hostname        string         `json:"hostname"`
	PID             int            `json:"pid"`
	Phase           string         `json:"phase"`
	Timestamp       time.Time      `json:"timestamp"`
	GoroutinesCount int            `json:"goroutines_count"`
	MemoryAllocMB   float64        `json:"memory_alloc_mb"`
	MemorySysMB     float64        `json:"memory_sys_mb"`
	GCCount         int            `json:"gc_count"`
	Alive           bool           `json:"alive"`
	StaleSince      *time.Duration `json:"stale_since,omitempty"`
}

// LatestHeartbeat returns the most recent heartbeat of sessionID, or nil,
// nil if none was recorded. Beats older than staleness (typically 3x the
// interval) are reported as not alive.
func LatestHeartbeat(ctx context.Context, db *sql.DB, sessionID string, staleness time.Duration) (*HeartbeatStatus, error) {
	row := db.QueryRowContext(ctx, `
		SELECT session_id, hostname, pid, phase, timestamp,
		       goroutines_count, memory_alloc_mb, memory_sys_mb, gc_count
		FROM session_heartbeats
		WHERE session_id = ?
		ORDER BY timestamp DESC LIMIT 1`, sessionID)

	var hs HeartbeatStatus
	var ts int64
	err := row.Scan(&hs.SessionID, &hs.Hostname, &hs.PID, &hs.Phase, &ts,
		&hs.GoroutinesCount, &hs.MemoryAllocMB, &hs.MemorySysMB, &hs.GCCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("observability: latest heartbeat: %w", err)
	}

	hs.Timestamp = time.Unix(ts, 0)
	if age := time.Since(hs.Timestamp); age <= staleness {
		hs.Alive = true
	} else {
		stale := age - staleness
		hs.StaleSince = &stale
	}
	return &hs, nil
}
