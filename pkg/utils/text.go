// Package utils provides shared utilities for text and logging.
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern     = regexp.MustCompile(`https?\S+|www\.\S+`)
	disallowedRune = regexp.MustCompile(`[^a-zA-Z0-9 ,.;!?'-]`)
)

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// CollapseSpace trims s and replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}

// FoldAccents decomposes s and drops combining marks, so "été" becomes "ete".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanText prepares document text for display in result lists: URLs are removed,
// accents folded, characters other than letters, digits and basic punctuation
// replaced by spaces, whitespace collapsed and the result lowercased.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = urlPattern.ReplaceAllString(s, "")
	s = FoldAccents(s)
	s = disallowedRune.ReplaceAllString(s, " ")
	return strings.ToLower(CollapseSpace(s))
}

// Snippet returns the cleaned first maxChars runes of content.
func Snippet(content string, maxChars int) string {
	r := []rune(content)
	if maxChars > 0 && len(r) > maxChars {
		r = r[:maxChars]
	}
	return CleanText(string(r))
}
