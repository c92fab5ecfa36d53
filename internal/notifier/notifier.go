// Package notifier delivers keyword-match alerts.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/webwatch/internal/matcher"
)

// Notifier raises one alert for all matches found in one cycle.
// Implementations must treat an empty match list as a no-op.
type Notifier interface {
	Notify(ctx context.Context, source string, matches []matcher.KeywordMatch) error
}

// NotifyError wraps a delivery failure.
type NotifyError struct {
	Channel string
	Source  string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s via %s: %v", e.Source, e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Message is the rendered alert.
type Message struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Source   string   `json:"source"`
	Keywords []string `json:"keywords"`
	Count    int      `json:"count"`
}

// Format renders matches found at source. The body quotes the context of
// the first match only.
func Format(source string, matches []matcher.KeywordMatch) Message {
	kws := matcher.UniqueKeywords(matches)
	msg := Message{
		Title:    fmt.Sprintf("Web Watcher Alert: %s found!", strings.Join(kws, ", ")),
		Source:   source,
		Keywords: kws,
		Count:    len(matches),
	}
	if len(matches) == 0 {
		return msg
	}
	if len(matches) == 1 {
		msg.Body = fmt.Sprintf("Found on %s\n\n%s", source, matches[0].Context)
	} else {
		msg.Body = fmt.Sprintf("Found %d matches on %s\n\n%s", len(matches), source, matches[0].Context)
	}
	return msg
}
