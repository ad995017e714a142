// Package textmatch implements accent- and case-insensitive fuzzy matching of
// search queries against names. Queries match when their characters appear in
// order in the target, so "cfe" matches "Café Deluxe".
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining diacritical marks.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Normalize folds s and collapses every run of non alphanumeric characters
// into a single space. The result only contains letters, digits and spaces.
func Normalize(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Tokens returns the words of the normalized query.
func Tokens(q string) []string {
	return strings.Fields(Normalize(q))
}

// Patterns returns the SQL LIKE patterns a normalized search column must match
// at least one of. The first pattern interleaves every token character with
// wildcards; the second does the same for the whole query, spaces included.
// An empty query yields no patterns.
func Patterns(q string) []string {
	normalized := Normalize(q)
	if normalized == "" {
		return nil
	}
	combined := "%" + interleave(strings.ReplaceAll(normalized, " ", "")) + "%"
	whole := "%" + interleave(normalized) + "%"
	if combined == whole {
		return []string{combined}
	}
	return []string{combined, whole}
}

// Match reports whether target matches the query under the same rules as the
// SQL patterns.
func Match(q, target string) bool {
	normalized := Normalize(q)
	if normalized == "" {
		return true
	}
	haystack := Normalize(target)
	return subsequence(strings.ReplaceAll(normalized, " ", ""), haystack) || subsequence(normalized, haystack)
}

func interleave(s string) string {
	var b strings.Builder
	first := true
	for _, r := range s {
		if !first {
			b.WriteByte('%')
		}
		first = false
		b.WriteRune(r)
	}
	return b.String()
}

func subsequence(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	n := []rune(needle)
	i := 0
	for _, r := range haystack {
		if r == n[i] {
			i++
			if i == len(n) {
				return true
			}
		}
	}
	return false
}
