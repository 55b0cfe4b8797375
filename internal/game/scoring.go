package game

import "strings"

// AnswerMatches reports whether a submitted guess matches the partner's
// stored signup answer. Comparison is case-insensitive and ignores leading
// and trailing whitespace. There is no partial credit and no fuzzy
// matching: either the normalized strings are equal or they are not.
func AnswerMatches(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}
