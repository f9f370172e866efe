// Package classify identifies which vendor sent an inbound order email.
package classify

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeText strips markup, folds diacritics, lower-cases and collapses whitespace
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = foldDiacritics(s)
	s = strings.ToLower(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// foldDiacritics maps "é" to "e" and compatibility forms to their plain letters
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// normalizeFragment prepares a configured domain fragment for containment tests
func normalizeFragment(fragment string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(fragment)), "@")
}
