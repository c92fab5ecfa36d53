package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/loykin/webwatch/internal/matcher"
)

// PartialError reports channels that failed while at least one other
// channel delivered the alert. The alert counts as delivered.
type PartialError struct {
	Delivered int
	Failed    int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d of %d notification channels failed: %v", e.Failed, e.Delivered+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Multi fans an alert out to every child. All children are attempted.
// When every child fails a *NotifyError is returned; when only some fail the
// result is a *PartialError.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, source string, matches []matcher.KeywordMatch) error {
	if len(matches) == 0 {
		return nil
	}
	var errs []error
	delivered := 0
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, source, matches); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if len(errs) == 0 {
		return nil
	}
	if delivered > 0 {
		return &PartialError{Delivered: delivered, Failed: len(errs), Err: errors.Join(errs...)}
	}
	return &NotifyError{Channel: "multi", Source: source, Err: errors.Join(errs...)}
}
