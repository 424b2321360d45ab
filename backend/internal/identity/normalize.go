// Package identity turns free-text names into canonical lookup keys.
//
// A key is a lookup aid, not an identity constraint: two different contacts
// may normalize to the same key and the stores allow it.
package identity

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize returns the canonical key for a display name: lower-cased,
// trimmed, with every internal run of whitespace collapsed to one space.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return whitespace.ReplaceAllString(key, " ")
}

// Equal reports whether two names normalize to the same key
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Contains reports whether the normalized form of query is a substring of
// the normalized form of name. An empty query matches nothing.
func Contains(name, query string) bool {
	q := Normalize(query)
	if q == "" {
		return false
	}
	return strings.Contains(Normalize(name), q)
}

// Tokens splits text into lower-cased words, dropping punctuation
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Mentions reports whether phrase occurs in text as a run of whole words.
// "Deja" is mentioned by "friends with deja." but not by "dejavu".
func Mentions(text, phrase string) bool {
	want := Tokens(phrase)
	if len(want) == 0 {
		return false
	}
	have := Tokens(text)
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j, w := range want {
			if have[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
