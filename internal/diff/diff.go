// Package diff decides whether fetched content changed in a way worth scanning.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const maxSummaryLines = 3

// HasChanged reports whether old and new differ once per-line surrounding
// whitespace and blank lines are ignored.
func HasChanged(old, new string) bool {
	if old == new {
		return false
	}
	return Normalize(old) != Normalize(new)
}

// Normalize trims every line, drops empty lines and joins the rest with "\n".
func Normalize(s string) string {
	lines := splitLines(s)
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Summary describes a line diff in a few lines for humans. Lines are compared
// in normalized form so indentation and blank-line churn stays out of it.
func Summary(old, new string) string {
	oldLines, newLines := normalizedLines(old), normalizedLines(new)
	m := difflib.NewMatcher(oldLines, newLines)

	var added, removed int
	var plus, minus []string
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'd' || op.Tag == 'r' {
			for _, l := range oldLines[op.I1:op.I2] {
				removed++
				if len(minus) < maxSummaryLines {
					minus = append(minus, "- "+l)
				}
			}
		}
		if op.Tag == 'i' || op.Tag == 'r' {
			for _, l := range newLines[op.J1:op.J2] {
				added++
				if len(plus) < maxSummaryLines {
					plus = append(plus, "+ "+l)
				}
			}
		}
	}

	if added == 0 && removed == 0 {
		return "Content changed (whitespace only)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d lines added, %d lines removed", added, removed)
	for _, l := range append(plus, minus...) {
		sb.WriteString("\n")
		sb.WriteString(l)
	}
	if added > maxSummaryLines || removed > maxSummaryLines {
		sb.WriteString("\n... (showing first 3 changes)")
	}
	return sb.String()
}

func normalizedLines(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Split(n, "\n")
}

// splitLines splits on \n and strips a trailing \r, like a line reader would.
// A single trailing newline does not produce an extra empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
