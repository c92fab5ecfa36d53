// Package matcher locates keywords in fetched content and cuts a short,
// cleaned window of text around each hit.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// ContextRadius is how many characters are taken on each side of a match.
	ContextRadius = 100
	// MaxContext bounds the length of a context string, markers included.
	MaxContext = 200
	truncateAt = 197

	// Ellipsis marks a context that does not reach the edge of the content.
	Ellipsis = "…"
)

// KeywordMatch is one occurrence of a keyword. Offset is the byte offset of
// the occurrence in the original content.
type KeywordMatch struct {
	Keyword string `json:"keyword"`
	Context string `json:"context"`
	Offset  int    `json:"offset"`
}

// FindKeywords returns every non-overlapping, case-insensitive occurrence of
// each keyword, grouped by keyword in the order given and left to right
// within a keyword. Duplicate keywords are searched independently; empty
// keywords never match.
func FindKeywords(content string, keywords []string) []KeywordMatch {
	var matches []KeywordMatch
	folded := foldCase(content)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		fk := foldCase(kw)
		start := 0
		for start < len(folded) {
			i := strings.Index(folded[start:], fk)
			if i < 0 {
				break
			}
			pos := start + i
			end := pos + len(fk)
			matches = append(matches, KeywordMatch{
				Keyword: kw,
				Context: extractContext(content, pos, end),
				Offset:  pos,
			})
			start = end
		}
	}
	return matches
}

// UniqueKeywords returns the distinct keywords of matches in first-seen order.
func UniqueKeywords(matches []KeywordMatch) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.Keyword]; ok {
			continue
		}
		seen[m.Keyword] = struct{}{}
		out = append(out, m.Keyword)
	}
	return out
}

// foldCase lowercases s rune by rune, keeping a rune unchanged when its
// lowercase form would have a different UTF-8 width. Byte offsets in the
// result are therefore valid in s.
func foldCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			sb.WriteByte(s[i])
			i++
			continue
		}
		lr := unicode.ToLower(r)
		if lr != r && utf8.RuneLen(lr) == size {
			sb.WriteRune(lr)
		} else {
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	return sb.String()
}

func extractContext(content string, pos, end int) string {
	from := backRunes(content, pos, ContextRadius)
	to := forwardRunes(content, end, ContextRadius)
	cleaned := cleanLines(content[from:to])

	leading := from > 0
	trailing := to < len(content)
	markers := 0
	if leading {
		markers++
	}
	if trailing {
		markers++
	}
	if utf8.RuneCountInString(cleaned)+markers > MaxContext {
		return Ellipsis + firstRunes(cleaned, truncateAt) + Ellipsis
	}
	if leading {
		cleaned = Ellipsis + cleaned
	}
	if trailing {
		cleaned += Ellipsis
	}
	return cleaned
}

func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, " ")
}

func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

func firstRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
