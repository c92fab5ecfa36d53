package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/loykin/webwatch/internal/watcher"
)

// IDWidth is how many characters of a watcher id are shown in listings.
const IDWidth = 8

// ShortID truncates id for display; any unique prefix resolves back.
func ShortID(id string) string {
	if len(id) <= IDWidth {
		return id
	}
	return id[:IDWidth]
}

// LastChecked formats the last check time, "never" when unset.
func LastChecked(w watcher.Watcher) string {
	if w.LastChecked == nil {
		return "never"
	}
	return w.LastChecked.Local().Format(time.DateTime)
}

// Table renders watchers as a bordered table for the list command.
func Table(ws []watcher.Watcher) string {
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("ID", "URL", "KEYWORDS", "INTERVAL", "ENABLED", "LAST CHECKED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, w := range ws {
		t.Row(
			ShortID(w.ID),
			w.URL,
			strings.Join(w.Keywords, ", "),
			w.CheckInterval.String(),
			enabledLabel(w.Enabled),
			LastChecked(w),
		)
	}
	return t.Render()
}

func enabledLabel(on bool) string {
	if on {
		return "yes"
	}
	return "no"
}
