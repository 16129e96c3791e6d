package tablewatch

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/sink"
)

// Phase is where a Runner stands in its session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhaseSigningIn  Phase = "signing_in"
	PhaseNavigating Phase = "navigating"
	PhaseHunting    Phase = "hunting"
	PhaseObserving  Phase = "observing"
	PhaseStopped    Phase = "stopped"
	PhaseFailed     Phase = "failed"
)

// recentRounds bounds the rounds kept in memory for Status and MCP.
const recentRounds = 64

// Status is a point-in-time view of a session.
type Status struct {
	SessionID string            `json:"session_id"`
	Phase     Phase             `json:"phase"`
	Hunt      *event.Hunt       `json:"hunt,omitempty"`
	Seats     map[string]string `json:"seats,omitempty"`
	Recording bool              `json:"recording"`
	Round     int               `json:"round"`  // -1 until a round starts
	Rounds    int               `json:"rounds"` // rounds emitted so far
	Error     string            `json:"error,omitempty"`
	StartedAt int64             `json:"started_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// board keeps the live Status. It is fed as a sink so it sees exactly what
// consumers see.
type board struct {
	mu     sync.RWMutex
	st     Status
	recent []event.RoundStarted
}

var _ sink.Sink = (*board)(nil)

func newBoard(sessionID string) *board {
	now := time.Now().UnixMilli()
	return &board{st: Status{
		SessionID: sessionID,
		Phase:     PhaseIdle,
		Round:     -1,
		StartedAt: now,
		UpdatedAt: now,
	}}
}

func (b *board) setPhase(p Phase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Phase = p
	b.st.UpdatedAt = time.Now().UnixMilli()
}

func (b *board) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Phase = PhaseFailed
	b.st.Error = err.Error()
	b.st.UpdatedAt = time.Now().UnixMilli()
}

func (b *board) snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.st
	st.Seats = maps.Clone(b.st.Seats)
	if b.st.Hunt != nil {
		h := *b.st.Hunt
		st.Hunt = &h
	}
	return st
}

// rounds returns up to limit most recent rounds, oldest first.
func (b *board) rounds(limit int) []event.RoundStarted {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.recent
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]event.RoundStarted{}, out...)
}

func (b *board) SendHunt(_ context.Context, h event.Hunt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Hunt = &h
	b.st.UpdatedAt = h.Timestamp
	return nil
}

func (b *board) SendSeating(_ context.Context, s event.Seating) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Seats = maps.Clone(s.Seats)
	b.st.Recording = s.Record
	b.st.UpdatedAt = s.Timestamp
	return nil
}

func (b *board) SendRound(_ context.Context, r event.RoundStarted) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Round = r.Round
	b.st.Rounds++
	b.st.UpdatedAt = r.Timestamp
	b.recent = append(b.recent, r)
	if len(b.recent) > recentRounds {
		b.recent = slices.Clone(b.recent[len(b.recent)-recentRounds:])
	}
	return nil
}

func (b *board) Close() error { return nil }
