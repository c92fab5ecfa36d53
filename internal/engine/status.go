package engine

import (
	"time"

	"github.com/loykin/webwatch/internal/history"
)

// State is the position of a watcher loop.
type State string

const (
	StateWaiting  State = "waiting"
	StateChecking State = "checking"
	StateStopped  State = "stopped"
)

// WatchStatus is the runtime view of one watcher loop.
type WatchStatus struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	State       State      `json:"state"`
	Checks      int        `json:"checks"`
	Failures    int        `json:"failures"`
	LastResult  string     `json:"last_result,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextCheckAt *time.Time `json:"next_check_at,omitempty"`
}

// StartedAt is zero until Start has scheduled at least one watcher.
func (e *Engine) StartedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.startedAt
}

// Status returns a copy of every loop's state in start order.
func (e *Engine) Status() []WatchStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]WatchStatus, 0, len(e.order))
	for _, id := range e.order {
		if st, ok := e.status[id]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// Active counts loops that have not stopped.
func (e *Engine) Active() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, id := range e.order {
		if st, ok := e.status[id]; ok && st.State != StateStopped {
			n++
		}
	}
	return n
}

func (e *Engine) setState(id string, s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.status[id]; ok {
		st.State = s
		if s != StateWaiting {
			st.NextCheckAt = nil
		}
	}
}

func (e *Engine) setWaiting(id string, next time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.status[id]; ok {
		st.State = StateWaiting
		n := next.UTC()
		st.NextCheckAt = &n
	}
}

// record is a no-op for watchers that are not scheduled, e.g. a one-off Check.
func (e *Engine) record(id string, typ history.EventType, err error, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.status[id]
	if !ok {
		return
	}
	st.Checks++
	st.LastResult = string(typ)
	t := at.UTC()
	st.LastRunAt = &t
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
}
