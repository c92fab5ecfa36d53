package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/webwatch/internal/history"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	matched := history.Event{
		Type:       history.EventMatched,
		OccurredAt: time.Now().UTC(),
		Record: history.Record{
			WatcherID: "w1", URL: "https://a.test", Changed: true, FirstCheck: true,
			Matches: 2, Keywords: []string{"sale"}, Notified: true, DurationMS: 12,
		},
	}
	if err := sink.Send(ctx, matched); err != nil {
		t.Fatalf("Failed to send matched event: %v", err)
	}
	failed := history.Event{
		Type:       history.EventFailed,
		OccurredAt: time.Now().UTC(),
		Record:     history.Record{WatcherID: "w1", URL: "https://a.test", Error: "fetch: http 503"},
	}
	if err := sink.Send(ctx, failed); err != nil {
		t.Fatalf("Failed to send failed event: %v", err)
	}

	n, err := sink.Count(ctx, "w1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	var errText string
	if err := sink.db.QueryRowContext(ctx,
		`SELECT error FROM check_history WHERE event = 'failed'`).Scan(&errText); err != nil {
		t.Fatalf("query: %v", err)
	}
	if errText != "fetch: http 503" {
		t.Fatalf("unexpected error column: %q", errText)
	}
}

func TestSQLiteSink_Memory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	for i := 0; i < 3; i++ {
		e := history.Event{Type: history.EventUnchanged, OccurredAt: time.Now(), Record: history.Record{WatcherID: "m", URL: "u"}}
		if err := sink.Send(context.Background(), e); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if n, _ := sink.Count(context.Background(), "m"); n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
