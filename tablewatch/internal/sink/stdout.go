package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) SendHunt(_ context.Context, h event.Hunt) error {
	return s.write("hunt", h)
}

func (s *Stdout) SendSeating(_ context.Context, st event.Seating) error {
	return s.write("seating", st)
}

func (s *Stdout) SendRound(_ context.Context, r event.RoundStarted) error {
	return s.write("round_started", r)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) write(typ string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: typ, Data: data})
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
