package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Mode selects how fetched bodies are presented to change detection.
type Mode string

const (
	ModeRaw  Mode = "raw"
	ModeText Mode = "text"
)

// ParseMode maps a config value to a Mode; empty means raw.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeText:
		return ModeText, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want raw or text)", s)
	}
}

// TextFetcher wraps another Fetcher and reduces HTML bodies to Markdown, so
// changes in scripts, attributes or layout markup are not seen as content.
type TextFetcher struct {
	next   Fetcher
	policy *bluemonday.Policy
	conv   *converter.Converter
}

func NewText(next Fetcher) *TextFetcher {
	return &TextFetcher{
		next:   next,
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (f *TextFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if !looksLikeHTML(body) {
		return body, nil
	}
	clean := f.policy.Sanitize(body)
	md, err := f.conv.ConvertString(clean, converter.WithDomain(url))
	if err != nil {
		// Keep the raw body rather than failing the cycle on odd markup.
		return body, nil
	}
	return md, nil
}

func looksLikeHTML(s string) bool {
	head := s
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<div") || strings.Contains(head, "<p")
}
