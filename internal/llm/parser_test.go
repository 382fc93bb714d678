package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "plain json", content: `{"category": "Coffee"}`, want: "Coffee"},
		{name: "json with whitespace", content: "  {\"category\": \"Groceries\"}\n", want: "Groceries"},
		{name: "markdown fenced", content: "```json\n{\"category\": \"Rent\"}\n```", want: "Rent"},
		{name: "bare fence", content: "```\n{\"category\": \"Rent\"}\n```", want: "Rent"},
		{name: "bare category name", content: "Coffee\n", want: "Coffee"},
		{name: "quoted bare name", content: `"Coffee"`, want: "Coffee"},
		{name: "empty category", content: `{"category": ""}`, wantErr: true},
		{name: "empty response", content: "", wantErr: true},
		{name: "broken json", content: `{"category": "Cof`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Category)
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper(`{"a":1}`))
	assert.Equal(t, "plain", cleanMarkdownWrapper("plain"))
}
