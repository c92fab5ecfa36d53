package notifier

import (
	"context"
	"log/slog"

	"github.com/loykin/webwatch/internal/matcher"
)

// Log writes alerts to a slog.Logger. It never fails.
type Log struct {
	logger *slog.Logger
}

func NewLog(l *slog.Logger) *Log {
	if l == nil {
		l = slog.Default()
	}
	return &Log{logger: l}
}

func (n *Log) Notify(_ context.Context, source string, matches []matcher.KeywordMatch) error {
	if len(matches) == 0 {
		return nil
	}
	msg := Format(source, matches)
	n.logger.Info(msg.Title,
		"url", source,
		"matches", msg.Count,
		"keywords", msg.Keywords,
		"context", matches[0].Context,
	)
	return nil
}
