package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseClassification extracts the category from a provider response.
// Providers are instructed to return a JSON object but routinely wrap
// it in markdown fences or fall back to a bare category name.
func parseClassification(content string) (ClassificationResponse, error) {
	content = cleanMarkdownWrapper(strings.TrimSpace(content))

	var jsonResp struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(content), &jsonResp); err == nil {
		if jsonResp.Category == "" {
			return ClassificationResponse{}, fmt.Errorf("no category found in response")
		}
		return ClassificationResponse{Category: strings.TrimSpace(jsonResp.Category)}, nil
	}

	// Bare text fallback: take the first non-empty line as the name.
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "{}") {
			return ClassificationResponse{}, fmt.Errorf("malformed classification response")
		}
		return ClassificationResponse{Category: strings.Trim(line, `"'.`)}, nil
	}

	return ClassificationResponse{}, fmt.Errorf("empty classification response")
}

// cleanMarkdownWrapper strips a surrounding ```json ... ``` fence.
func cleanMarkdownWrapper(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
