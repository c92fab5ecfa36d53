package watcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCheckInterval is used when no interval is given at creation time.
const DefaultCheckInterval = 5 * time.Minute

// maxIntervalSeconds keeps n*time.Second inside time.Duration.
const maxIntervalSeconds = math.MaxInt64 / int64(time.Second)

var (
	ErrInvalidInterval = errors.New("check interval must be a whole number of seconds, at least 1s")
	ErrEmptyURL        = errors.New("watcher url is required")
)

// IntervalError reports an interval string that could not be accepted.
type IntervalError struct {
	Input string
	Err   error
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval %q: %v", e.Input, e.Err)
}

func (e *IntervalError) Unwrap() error { return e.Err }

// Watcher is one monitored resource.
// ID and CachePath are fixed at creation; the engine only ever changes LastChecked.
type Watcher struct {
	ID            string
	URL           string
	Keywords      []string
	CheckInterval time.Duration
	Enabled       bool
	LastChecked   *time.Time
	CachePath     string
}

// New creates an enabled watcher with a fresh id.
// Empty keywords are dropped; the interval must pass ValidateInterval.
func New(url string, keywords []string, interval time.Duration) (Watcher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Watcher{}, ErrEmptyURL
	}
	if err := ValidateInterval(interval); err != nil {
		return Watcher{}, &IntervalError{Input: interval.String(), Err: err}
	}
	id := uuid.NewString()
	return Watcher{
		ID:            id,
		URL:           url,
		Keywords:      cleanKeywords(keywords),
		CheckInterval: interval,
		Enabled:       true,
		CachePath:     CacheKeyFor(id),
	}, nil
}

// CacheKeyFor derives the cache key for a watcher id.
func CacheKeyFor(id string) string { return id + ".html" }

// CacheKey returns the key addressing this watcher's cache snapshot.
// Records loaded without a cache_path fall back to the derived key.
func (w Watcher) CacheKey() string {
	if w.CachePath != "" {
		return w.CachePath
	}
	return CacheKeyFor(w.ID)
}

// Clone returns a deep copy so callers can hold a snapshot outside the registry lock.
func (w Watcher) Clone() Watcher {
	c := w
	if w.Keywords != nil {
		c.Keywords = append([]string(nil), w.Keywords...)
	}
	if w.LastChecked != nil {
		t := *w.LastChecked
		c.LastChecked = &t
	}
	return c
}

// ValidateInterval accepts whole-second intervals of at least one second,
// the only values the registry stores without loss.
func ValidateInterval(d time.Duration) error {
	if d < time.Second || d%time.Second != 0 {
		return ErrInvalidInterval
	}
	return nil
}

// ParseInterval accepts whole seconds ("300") or a Go duration ("5m").
// An empty string yields DefaultCheckInterval.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCheckInterval, nil
	}
	var d time.Duration
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 || n > maxIntervalSeconds {
			return 0, &IntervalError{Input: s, Err: ErrInvalidInterval}
		}
		d = time.Duration(n) * time.Second
	} else {
		pd, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, &IntervalError{Input: s, Err: ErrInvalidInterval}
		}
		d = pd
	}
	if err := ValidateInterval(d); err != nil {
		return 0, &IntervalError{Input: s, Err: err}
	}
	return d, nil
}

// ParseKeywords splits a comma separated list, trimming entries and dropping empty ones.
func ParseKeywords(s string) []string {
	return cleanKeywords(strings.Split(s, ","))
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}

// record is the persisted JSON shape.
type record struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Keywords      []string   `json:"keywords"`
	CheckInterval int64      `json:"check_interval"`
	Enabled       bool       `json:"enabled"`
	LastChecked   *time.Time `json:"last_checked,omitempty"`
	CachePath     string     `json:"cache_path"`
}

func (w Watcher) MarshalJSON() ([]byte, error) {
	kw := w.Keywords
	if kw == nil {
		kw = []string{}
	}
	var lc *time.Time
	if w.LastChecked != nil {
		t := w.LastChecked.UTC()
		lc = &t
	}
	return json.Marshal(record{
		ID:            w.ID,
		URL:           w.URL,
		Keywords:      kw,
		CheckInterval: int64(w.CheckInterval / time.Second),
		Enabled:       w.Enabled,
		LastChecked:   lc,
		CachePath:     w.CachePath,
	})
}

func (w *Watcher) UnmarshalJSON(b []byte) error {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	if r.CheckInterval <= 0 || r.CheckInterval > maxIntervalSeconds {
		return fmt.Errorf("watcher %s: check_interval %d: %w", r.ID, r.CheckInterval, ErrInvalidInterval)
	}
	*w = Watcher{
		ID:            r.ID,
		URL:           r.URL,
		Keywords:      r.Keywords,
		CheckInterval: time.Duration(r.CheckInterval) * time.Second,
		Enabled:       r.Enabled,
		LastChecked:   r.LastChecked,
		CachePath:     r.CachePath,
	}
	return nil
}
