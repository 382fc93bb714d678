package classify

import (
	"strings"

	"github.com/jmturner/cinnamon/internal/normalize"
)

// TokenSortRatio computes a word-order-insensitive similarity between
// two strings in [0,1]. Both sides are tokenized, sorted, rejoined and
// compared with a normalized Levenshtein ratio, so
// "123 STARBUCKS" and "STARBUCKS #123" score 1.0.
func TokenSortRatio(a, b string) float64 {
	return levenshteinRatio(
		strings.Join(normalize.SortedTokens(a), " "),
		strings.Join(normalize.SortedTokens(b), " "),
	)
}

// levenshteinRatio is 1 - distance/len(longer). It is monotonically
// non-increasing as edit distance grows.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ar := []rune(a)
	br := []rune(b)
	longer := len(ar)
	if len(br) > longer {
		longer = len(br)
	}
	if longer == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein(ar, br))/float64(longer)
}

// levenshtein computes edit distance with the two-row dynamic
// programming formulation.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
