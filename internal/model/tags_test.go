package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTagList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "auto", want: []string{"auto"}},
		{name: "multiple with spaces", raw: "auto, reviewed , ml", want: []string{"auto", "reviewed", "ml"}},
		{name: "duplicates removed", raw: "auto,auto,reviewed", want: []string{"auto", "reviewed"}},
		{name: "empty segments dropped", raw: ",auto,,", want: []string{"auto"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTagList(tt.raw))
		})
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		newTags  []string
		want     []string
	}{
		{name: "both empty", existing: nil, newTags: nil, want: []string{}},
		{name: "existing kept first", existing: []string{"a", "b"}, newTags: []string{"c"}, want: []string{"a", "b", "c"}},
		{name: "overlap deduplicated", existing: []string{"a", "b"}, newTags: []string{"b", "c"}, want: []string{"a", "b", "c"}},
		{name: "empty strings skipped", existing: []string{"", "a"}, newTags: []string{""}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeTags(tt.existing, tt.newTags))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" a ", "b", "a", ""})
	assert.Equal(t, []string{"a", "b"}, got)
}
