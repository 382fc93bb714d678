// Package normalize canonicalizes transaction text into stable lookup
// keys and token streams. Memory keys, the statistical vectorizer, and
// fuzzy matching all share these rules; a persisted model trained with
// a different tokenizer version is rejected at load time.
package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// TokenizerVersion identifies the tokenization rules below. Bump it on
// any change so stale persisted models force a retrain instead of
// scoring against mismatched vocabularies.
const TokenizerVersion = 1

// Key canonicalizes a description into the memory lookup key:
// lowercased, trimmed, with internal whitespace collapsed to single
// spaces. Punctuation is preserved so distinct merchants stay distinct.
func Key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokens splits text into lowercased alphanumeric tokens. Everything
// that is not a letter or digit is a separator.
func Tokens(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SortedTokens returns Tokens sorted lexicographically, used by the
// token-sort fuzzy similarity so word order does not matter.
func SortedTokens(s string) []string {
	tokens := Tokens(s)
	sort.Strings(tokens)
	return tokens
}
