// Package htmlsanitize cleans free text typed by operators before it is
// stored in the ledger or move history.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextRunes bounds stored free text.
const MaxTextRunes = 1000

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s, decodes entities the policy
// introduced, collapses surrounding whitespace and truncates to
// MaxTextRunes.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	out = strings.TrimSpace(out)
	if utf8.RuneCountInString(out) > MaxTextRunes {
		r := []rune(out)
		out = strings.TrimSpace(string(r[:MaxTextRunes]))
	}
	return out
}
