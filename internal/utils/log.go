package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultMaxLogLength bounds sanitized values unless the caller overrides it.
const defaultMaxLogLength = 200

// SanitizeForLog makes s safe to embed in a single log line. Newlines, carriage
// returns and tabs are escaped, other control and non-printable runes become
// '?', and backslashes are doubled so escapes cannot be forged.
// The optional maxLength truncates the result in bytes, never splitting a
// rune (default 200, <= 0 disables).
func SanitizeForLog(s string, maxLength ...int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\\':
			b.WriteString(`\\`)
		case unicode.IsControl(r), !unicode.IsPrint(r):
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}

	limit := defaultMaxLogLength
	if len(maxLength) > 0 {
		limit = maxLength[0]
	}
	out := b.String()
	if limit > 0 && len(out) > limit {
		// Cut on a rune boundary so the result stays valid UTF-8.
		for limit > 0 && !utf8.RuneStart(out[limit]) {
			limit--
		}
		return out[:limit] + "...[truncated]"
	}
	return out
}
