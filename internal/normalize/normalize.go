// Package normalize cleans user-supplied event text before it is stored or indexed.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"
)

// htmlTagPattern detects descriptions pasted as HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|u|strong|em|a|ul|ol|li|h[1-6]|blockquote|table|img)[\s>/]`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Text trims s, drops NUL bytes and collapses internal whitespace runs to one space.
// Used for single-line fields such as names and localizations.
func Text(s string) string {
	s = stripNUL(s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Description returns s converted to Markdown when it looks like HTML,
// otherwise s trimmed. Line breaks in plain text are preserved.
func Description(s string) string {
	s = strings.TrimSpace(stripNUL(s))
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// Fold lowercases s and removes diacritics so "Café Läuft" and "cafe lauft"
// compare equal. Letters without an ASCII decomposition are kept.
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return Text(s)
}

func stripNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}
