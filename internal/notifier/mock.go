package notifier

import (
	"context"
	"sync"

	"github.com/loykin/webwatch/internal/matcher"
)

// Call records one Notify invocation.
type Call struct {
	Source  string
	Matches []matcher.KeywordMatch
}

// Mock records calls and optionally fails them.
type Mock struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

func NewMock() *Mock { return &Mock{} }

// FailWith makes subsequent calls fail with err; nil restores success.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Mock) Notify(_ context.Context, source string, matches []matcher.KeywordMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]matcher.KeywordMatch, len(matches))
	copy(cp, matches)
	m.calls = append(m.calls, Call{Source: source, Matches: cp})
	if m.err != nil {
		return &NotifyError{Channel: "mock", Source: source, Err: m.err}
	}
	return nil
}
