// Package naming converts field names between the backend's snake_case and
// the admin's camelCase conventions.
package naming

import (
	"strings"
	"unicode"
)

// SnakeToCamel converts "source_slug" to "sourceSlug".
// Every run of separators is dropped and the rune that follows it is upper-cased.
// A trailing separator run is kept as is.
func SnakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if isWord(r) {
			b.WriteRune(r)
			continue
		}

		j := i
		for j < len(runes) && !isWord(runes[j]) {
			j++
		}
		if j == len(runes) {
			b.WriteString(string(runes[i:]))
			break
		}
		b.WriteRune(unicode.ToUpper(runes[j]))
		i = j
	}
	return b.String()
}

// CamelToSnake converts "sourceSlug" to "source_slug".
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FieldPath converts a dotted backend location such as "modifiers.0.options"
// segment by segment, keeping the dots.
func FieldPath(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = SnakeToCamel(p)
	}
	return strings.Join(parts, ".")
}

// Slugify lower-cases s and joins its words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if isWord(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func isWord(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
