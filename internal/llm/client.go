package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	Classify(ctx context.Context, prompt string) (ClassificationResponse, error)
}

// ClassificationResponse contains the raw category name returned by a
// provider. Confidence is assigned by the Classifier from configuration,
// not by the model.
type ClassificationResponse struct {
	Category string
}
