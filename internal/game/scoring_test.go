package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerMatches(t *testing.T) {
	cases := []struct {
		name      string
		submitted string
		expected  string
		want      bool
	}{
		{"exact match", "pizza", "pizza", true},
		{"case insensitive", "PiZZa", "pizza", true},
		{"surrounding whitespace ignored", "  pizza \t", "pizza", true},
		{"both sides trimmed", " pizza", "pizza ", true},
		{"different answer", "pasta", "pizza", false},
		{"no partial credit", "pizz", "pizza", false},
		{"inner whitespace matters", "deep dish", "deepdish", false},
		{"empty against empty", "", "", true},
		{"empty against answer", "", "pizza", false},
		{"unicode case folding", "GÜNTHER", "günther", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AnswerMatches(tc.submitted, tc.expected))
		})
	}
}
