package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tablewatch/dbopen"
	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

func round(id string, n, prev int, ts int64) event.RoundStarted {
	return event.RoundStarted{
		ID: id, SessionID: "ses_1", Round: n, Previous: prev,
		Seats:     map[string]string{"nord": "Alice", "sud": ""},
		Timestamp: ts,
	}
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()

	if err := s.SendHunt(ctx, event.Hunt{ID: "h1", State: "found", Attempts: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.SendRound(ctx, round("r1", 12, 11, 1)); err != nil {
		t.Fatal(err)
	}

	sc := bufio.NewScanner(&buf)
	var types []string
	for sc.Scan() {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(sc.Bytes(), &env); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		types = append(types, env.Type)
	}
	if len(types) != 2 || types[0] != "hunt" || types[1] != "round_started" {
		t.Fatalf("types = %v", types)
	}
}

type failing struct{ Callback }

func (failing) SendRound(context.Context, event.RoundStarted) error {
	return errors.New("boom")
}

func TestRouter_OneFailureDoesNotBlockOthers(t *testing.T) {
	var got []int
	ok := NewCallback(nil, nil, func(_ context.Context, r event.RoundStarted) error {
		got = append(got, r.Round)
		return nil
	})
	r := NewRouter(nil, &failing{}, ok)

	err := r.SendRound(context.Background(), round("r1", 3, 2, 1))
	if err == nil || err.Error() != "boom" {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("healthy sink got %v", got)
	}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte(`"round_started"`)) {
			t.Errorf("body = %s", body)
		}
		if got := r.Header.Get("X-Tablewatch-Event"); got != "round_started" {
			t.Errorf("event header = %q", got)
		}
		if got := r.Header.Get("X-Tablewatch-Delivery"); got != "r1" {
			t.Errorf("delivery header = %q", got)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL, Backoff: time.Millisecond, Logger: quiet})
	if err := wh.SendRound(context.Background(), round("r1", 2, 1, 1)); err != nil {
		t.Fatalf("SendRound: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_AttemptsExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL, Attempts: 2, Backoff: time.Millisecond, Logger: quiet})
	err := wh.SendHunt(context.Background(), event.Hunt{ID: "h1"})
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want *DeliveryError", err)
	}
	if derr.Status != http.StatusInternalServerError || derr.Attempts != 2 || derr.ID != "h1" {
		t.Fatalf("DeliveryError = %+v", derr)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestWebhook_ClientErrorIsFinal(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		wh := NewWebhook(WebhookConfig{URL: srv.URL, Backoff: time.Millisecond, Logger: quiet})
		err := wh.SendSeating(context.Background(), event.Seating{ID: "s1"})
		srv.Close()

		var derr *DeliveryError
		if !errors.As(err, &derr) || derr.Status != status {
			t.Fatalf("status %d: err = %v", status, err)
		}
		if calls.Load() != 1 {
			t.Errorf("status %d: calls = %d, want 1", status, calls.Load())
		}
	}
}

func TestWebhook_TooManyRequestsIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL, Backoff: time.Millisecond, Logger: quiet})
	if err := wh.SendHunt(context.Background(), event.Hunt{ID: "h2"}); err != nil {
		t.Fatalf("SendHunt: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestWebhook_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	wh := NewWebhook(WebhookConfig{URL: srv.URL, Backoff: time.Hour, Logger: quiet})
	err := wh.SendHunt(ctx, event.Hunt{ID: "h3"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.in); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSQLite_StoresEvents(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s, err := NewSQLite(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.SendHunt(ctx, event.Hunt{ID: "h1", SessionID: "ses_1", State: "found", Attempts: 3, Clicks: 2, Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SendSeating(ctx, event.Seating{ID: "s1", SessionID: "ses_1", Seats: map[string]string{"nord": "A"}, Record: true, Timestamp: 2}); err != nil {
		t.Fatal(err)
	}
	for i, n := range []int{12, 13, 14} {
		if err := s.SendRound(ctx, round("r"+string(rune('a'+i)), n, n-1, int64(10+i))); err != nil {
			t.Fatal(err)
		}
	}

	var state string
	if err := db.QueryRow(`SELECT state FROM hunts WHERE id = 'h1'`).Scan(&state); err != nil {
		t.Fatal(err)
	}
	if state != "found" {
		t.Fatalf("state = %q", state)
	}

	rounds, err := s.Rounds(ctx, "ses_1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 3 || rounds[0].Round != 12 || rounds[2].Round != 14 {
		t.Fatalf("rounds = %+v", rounds)
	}
	if rounds[0].Seats["nord"] != "Alice" {
		t.Fatalf("seats = %v", rounds[0].Seats)
	}

	latest, err := s.Rounds(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 || latest[0].Round != 13 || latest[1].Round != 14 {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestOpenSQLite_File(t *testing.T) {
	path := t.TempDir() + "/data/events.db"
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SendRound(context.Background(), round("r1", 1, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
