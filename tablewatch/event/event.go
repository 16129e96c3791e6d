// Package event defines what tablewatch emits. Consumers import this
// package to receive hunt outcomes, seatings and round starts.
package event

// Hunt is emitted once per hunt, when it reaches a terminal state.
type Hunt struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	State     string `json:"state"` // found | exhausted | blocked
	Attempts  int    `json:"attempts"`
	Clicks    int    `json:"clicks"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Seating is emitted when observation starts on a found table.
type Seating struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Seats     map[string]string `json:"seats"`  // position -> name, "" when unreadable
	Record    bool              `json:"record"` // policy verdict
	Timestamp int64             `json:"timestamp"`
}

// RoundStarted is emitted once per distinct round that begins while the
// table is observed. The round in progress at entry is never emitted.
type RoundStarted struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Round     int               `json:"round"`
	Previous  int               `json:"previous"`
	Seats     map[string]string `json:"seats"`
	Timestamp int64             `json:"timestamp"`
}
