package tablewatch

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestSinksFromConfig(t *testing.T) {
	sinks, err := SinksFromConfig([]SinkConfig{
		{Type: "stdout"},
		{Type: "webhook", URL: "http://127.0.0.1:1/hook"},
		{Type: "sqlite", Path: filepath.Join(t.TempDir(), "events.db")},
	}, quiet)
	if err != nil {
		t.Fatalf("SinksFromConfig: %v", err)
	}
	defer closeAll(sinks)
	if len(sinks) != 3 {
		t.Fatalf("got %d sinks", len(sinks))
	}
	if _, ok := sinks[2].(*SQLiteSink); !ok {
		t.Fatalf("third sink is %T", sinks[2])
	}
}

func TestSinksFromConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  SinkConfig
	}{
		{"unknown type", SinkConfig{Type: "kafka"}},
		{"webhook without url", SinkConfig{Type: "webhook"}},
		{"sqlite without path", SinkConfig{Type: "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SinksFromConfig([]SinkConfig{{Type: "stdout"}, tt.cfg}, quiet); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
