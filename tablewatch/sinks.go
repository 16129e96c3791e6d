package tablewatch

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
	"github.com/hazyhaar/tablewatch/tablewatch/internal/sink"
)

// Sink is the output interface for tablewatch events.
type Sink = sink.Sink

// NewStdoutSink creates a JSON-lines sink. A nil writer means os.Stdout.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink from a "webhook" entry.
// Zero Attempts and Backoff take the sink defaults.
func NewWebhookSink(sc SinkConfig, logger *slog.Logger) Sink {
	return sink.NewWebhook(sink.WebhookConfig{
		URL:      sc.URL,
		Attempts: sc.Attempts,
		Backoff:  sc.Backoff,
		Logger:   logger,
	})
}

// NewCallbackSink creates an in-process sink. Nil callbacks are skipped.
func NewCallbackSink(
	onHunt func(ctx context.Context, h event.Hunt) error,
	onSeating func(ctx context.Context, s event.Seating) error,
	onRound func(ctx context.Context, r event.RoundStarted) error,
) Sink {
	return sink.NewCallback(onHunt, onSeating, onRound)
}

// SQLiteSink stores events in SQLite and reads rounds back.
type SQLiteSink = sink.SQLite

// NewSQLiteSink stores events in an already open database. The caller keeps
// ownership of db.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	return sink.NewSQLite(db)
}

// OpenSQLiteSink opens (or creates) the database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	return sink.OpenSQLite(path)
}

// SinksFromConfig builds the sinks listed in cfg. On error the sinks
// already opened are closed.
func SinksFromConfig(cfg []SinkConfig, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for _, sc := range cfg {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(nil))
		case "webhook":
			if sc.URL == "" {
				closeAll(out)
				return nil, fmt.Errorf("tablewatch: webhook sink requires url")
			}
			out = append(out, NewWebhookSink(sc, logger))
		case "sqlite":
			if sc.Path == "" {
				closeAll(out)
				return nil, fmt.Errorf("tablewatch: sqlite sink requires path")
			}
			s, err := OpenSQLiteSink(sc.Path)
			if err != nil {
				closeAll(out)
				return nil, fmt.Errorf("tablewatch: open sqlite sink: %w", err)
			}
			out = append(out, s)
		default:
			closeAll(out)
			return nil, fmt.Errorf("tablewatch: unknown sink type %q", sc.Type)
		}
	}
	return out, nil
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		s.Close()
	}
}
