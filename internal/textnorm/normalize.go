// Package textnorm canonicalizes challenge text so that strings coming from the
// server payload and strings scraped from the rendered page can be compared.
package textnorm

import (
	"strings"
	"unicode"
)

// quoteRunes are removed wherever they occur.
const quoteRunes = "'\"‘’“”"

// punctRunes are the sentence punctuation marks, half- and full-width.
const punctRunes = ".,?!。、？！，．"

// Normalize returns the canonical form of text. It strips numbering digits at
// both ends, drops quotes, whitespace and sentence punctuation, and lowercases
// what is left. The pipeline is applied until it stops changing the string, so
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	for {
		next := pass(text)
		if next == text {
			return next
		}
		text = next
	}
}

// Equal reports whether a and b normalize to the same string.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// All normalizes every element of in, preserving order.
func All(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Normalize(s)
	}
	return out
}

func pass(s string) string {
	s = strings.TrimLeft(s, "0123456789")
	s = strings.TrimRight(s, "0123456789")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(quoteRunes, r):
		case isSpace(r):
		case strings.ContainsRune(punctRunes, r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// isSpace matches the JavaScript \s class, which adds U+FEFF to Unicode White_Space.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\u3000' || r == '\uFEFF'
}
