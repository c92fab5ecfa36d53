package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loykin/webwatch/internal/diff"
	"github.com/loykin/webwatch/internal/fetcher"
	"github.com/loykin/webwatch/internal/history"
	"github.com/loykin/webwatch/internal/matcher"
	"github.com/loykin/webwatch/internal/metrics"
	"github.com/loykin/webwatch/internal/notifier"
	"github.com/loykin/webwatch/internal/watcher"
)

const historyTimeout = 5 * time.Second

// CycleResult describes a successful check.
type CycleResult struct {
	Changed    bool                   `json:"changed"`
	FirstCheck bool                   `json:"first_check"`
	Matches    []matcher.KeywordMatch `json:"matches,omitempty"`
	Notified   bool                   `json:"notified"`
	Summary    string                 `json:"summary,omitempty"`
}

// Check runs one fetch, compare, scan, notify and store cycle for w.
// The registry is not touched; callers record LastChecked on success.
func (e *Engine) Check(ctx context.Context, w watcher.Watcher) (CycleResult, error) {
	start := time.Now()
	res, err := e.check(ctx, w)
	e.finish(ctx, w, res, err, time.Since(start))
	return res, err
}

func (e *Engine) check(ctx context.Context, w watcher.Watcher) (CycleResult, error) {
	var res CycleResult

	current, err := e.fetcher.Fetch(ctx, w.URL)
	if err != nil {
		return res, err
	}

	key := w.CacheKey()
	prior, found, err := e.cache.Read(key)
	if err != nil {
		return res, err
	}
	res.FirstCheck = !found
	if found && !diff.HasChanged(prior, current) {
		return res, nil
	}
	res.Changed = true
	if found {
		res.Summary = diff.Summary(prior, current)
	}

	res.Matches = matcher.FindKeywords(current, w.Keywords)
	if len(res.Matches) > 0 {
		err := e.notifier.Notify(ctx, w.URL, res.Matches)
		var pe *notifier.PartialError
		switch {
		case err == nil:
		case errors.As(err, &pe):
			// delivered on at least one channel; the snapshot advances
			e.logger.Warn("some notification channels failed", "watcher", w.ID,
				"delivered", pe.Delivered, "failed", pe.Failed, "error", pe.Err)
		default:
			var ne *notifier.NotifyError
			if !errors.As(err, &ne) {
				err = &notifier.NotifyError{Channel: "notify", Source: w.URL, Err: err}
			}
			metrics.IncNotification(false)
			return res, err
		}
		metrics.IncNotification(true)
		res.Notified = true
	}

	if err := e.cache.Write(key, current); err != nil {
		return res, err
	}
	return res, nil
}

func eventType(res CycleResult, err error) history.EventType {
	switch {
	case err != nil:
		return history.EventFailed
	case len(res.Matches) > 0:
		return history.EventMatched
	case res.Changed:
		return history.EventChanged
	default:
		return history.EventUnchanged
	}
}

func metricResult(t history.EventType) string {
	switch t {
	case history.EventFailed:
		return metrics.ResultError
	case history.EventMatched:
		return metrics.ResultMatched
	case history.EventChanged:
		return metrics.ResultChanged
	default:
		return metrics.ResultUnchanged
	}
}

// finish logs, records metrics and exports the cycle. It never fails the cycle.
func (e *Engine) finish(ctx context.Context, w watcher.Watcher, res CycleResult, err error, took time.Duration) {
	at := e.now()
	typ := eventType(res, err)
	log := e.logger.With("watcher", w.ID, "url", w.URL)

	metrics.ObserveCycle(w.ID, metricResult(typ), took)
	switch typ {
	case history.EventFailed:
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			metrics.IncFetchError(w.ID, string(fe.Kind))
		}
		log.Warn("check failed", "error", err)
	case history.EventMatched:
		metrics.AddMatches(w.ID, len(res.Matches))
		log.Info("keywords found", "matches", len(res.Matches),
			"keywords", matcher.UniqueKeywords(res.Matches), "first_check", res.FirstCheck)
	case history.EventChanged:
		log.Info("content changed", "first_check", res.FirstCheck, "summary", res.Summary)
	default:
		log.Debug("content unchanged")
	}
	if err == nil {
		metrics.SetLastSuccess(w.ID, at)
	}
	e.record(w.ID, typ, err, at)

	if len(e.sinks) == 0 {
		return
	}
	rec := history.Record{
		WatcherID:  w.ID,
		URL:        w.URL,
		Changed:    res.Changed,
		FirstCheck: res.FirstCheck,
		Matches:    len(res.Matches),
		Keywords:   matcher.UniqueKeywords(res.Matches),
		Notified:   res.Notified,
		Summary:    res.Summary,
		DurationMS: took.Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	ev := history.Event{Type: typ, OccurredAt: at.UTC(), Record: rec}

	// export even when the loop is being cancelled
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	for _, s := range e.sinks {
		if serr := s.Send(hctx, ev); serr != nil {
			log.Warn("history sink failed", "sink", fmt.Sprintf("%T", s), "error", serr)
		}
	}
}
