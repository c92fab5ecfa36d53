package fetcher

import (
	"context"
	"errors"
	"sync"
)

// Mock is a deterministic Fetcher for tests and dry runs.
// Responses are looked up by URL; a queued sequence is consumed first.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	queue     map[string][]string
	calls     map[string]int
}

func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		queue:     make(map[string][]string),
		calls:     make(map[string]int),
	}
}

// Set fixes the body returned for url and clears any error.
func (m *Mock) Set(url, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = body
	delete(m.errs, url)
}

// Fail makes every fetch of url return err.
func (m *Mock) Fail(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[url] = err
}

// Queue appends bodies returned in order before falling back to Set.
func (m *Mock) Queue(url string, bodies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue[url] = append(m.queue[url], bodies...)
}

// Calls returns how many times url was fetched.
func (m *Mock) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *Mock) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[url]++
	if err := ctx.Err(); err != nil {
		return "", &FetchError{URL: url, Kind: KindTimeout, Err: err}
	}
	if err, ok := m.errs[url]; ok {
		var fe *FetchError
		if errors.As(err, &fe) {
			return "", err
		}
		return "", &FetchError{URL: url, Kind: KindTransport, Err: err}
	}
	if q := m.queue[url]; len(q) > 0 {
		m.queue[url] = q[1:]
		return q[0], nil
	}
	if body, ok := m.responses[url]; ok {
		return body, nil
	}
	return "", &FetchError{URL: url, Kind: KindStatus, StatusCode: 404}
}
