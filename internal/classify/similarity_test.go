package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "STARBUCKS #123", b: "STARBUCKS #123", want: 1.0},
		{name: "case insensitive", a: "starbucks", b: "STARBUCKS", want: 1.0},
		{name: "word order ignored", a: "123 STARBUCKS", b: "STARBUCKS #123", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSortRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenSortRatioRange(t *testing.T) {
	pairs := [][2]string{
		{"STARBUCKS #123", "STARBUCKS #456"},
		{"grocery store", "hardware store"},
		{"a", "completely different thing"},
		{"", "something"},
	}
	for _, p := range pairs {
		got := TokenSortRatio(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

// Similarity must not increase as the query drifts further from the
// stored key.
func TestTokenSortRatioMonotonic(t *testing.T) {
	stored := "starbucks coffee"
	drift := []string{
		"starbucks coffee",
		"starbucks coffes",
		"starbucks cofxxs",
		"starbucks zzzzzz",
		"sxxxxxxxs zzzzzz",
	}

	prev := 2.0
	for _, query := range drift {
		score := TokenSortRatio(stored, query)
		assert.LessOrEqual(t, score, prev, "score increased for %q", query)
		prev = score
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
