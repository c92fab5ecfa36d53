// Package history exports finished check cycles to analytics stores.
package history

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// EventType is the outcome of one check cycle.
type EventType string

const (
	EventUnchanged EventType = "unchanged"
	EventChanged   EventType = "changed"
	EventMatched   EventType = "matched"
	EventFailed    EventType = "failed"
)

// Record describes one cycle of one watcher.
type Record struct {
	WatcherID  string   `json:"watcher_id"`
	URL        string   `json:"url"`
	Changed    bool     `json:"changed"`
	FirstCheck bool     `json:"first_check"`
	Matches    int      `json:"matches"`
	Keywords   []string `json:"keywords,omitempty"`
	Notified   bool     `json:"notified"`
	Summary    string   `json:"summary,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// KeywordList renders Keywords for column stores.
func (r Record) KeywordList() string { return strings.Join(r.Keywords, ",") }

// Event represents a finished cycle to be exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// CloseAll closes every sink that holds resources.
func CloseAll(sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
