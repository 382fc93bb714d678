package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmturner/cinnamon/internal/common"
	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/service"
)

// DefaultConfidence is assigned to fallback predictions when none is
// configured. The model has no native probability; this is a policy
// value, calibrated against the auto-approval threshold.
const DefaultConfidence = 0.9

// Config holds configuration for the fallback classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
	Confidence  float64
}

// Enabled reports whether the fallback should be constructed at all.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

// Classifier is the last-resort categorizer backed by an external
// language model. It is constrained to the caller's category set and
// degrades to a nil prediction on every failure mode.
type Classifier struct {
	client     Client
	cache      *predictionCache
	limiter    *rateLimiter
	retryOpts  service.RetryOptions
	confidence float64
}

// NewClassifier creates a fallback classifier for the configured provider.
func NewClassifier(cfg Config) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	confidence := cfg.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = DefaultConfidence
	}

	return &Classifier{
		client:     client,
		cache:      newPredictionCache(cfg.CacheTTL),
		limiter:    newRateLimiter(cfg.RateLimit),
		retryOpts:  retryOpts,
		confidence: confidence,
	}, nil
}

// Predict asks the model to pick one of the known categories for the
// transaction. A transport error, timeout, malformed response, or a
// category outside the known set all yield nil; failures are logged,
// never propagated.
func (c *Classifier) Predict(ctx context.Context, txn model.Transaction, categories []string) *model.Prediction {
	if len(categories) == 0 {
		return nil
	}

	hash := txn.GenerateHash()
	if cached, found := c.cache.get(hash); found {
		slog.Debug("fallback cache hit", "transaction_id", txn.ID)
		return &cached
	}

	if err := c.limiter.wait(ctx); err != nil {
		slog.Warn("fallback rate limiter canceled", "transaction_id", txn.ID, "error", err)
		return nil
	}

	prompt := buildPrompt(txn, categories)

	var resp ClassificationResponse
	err := common.WithRetry(ctx, func() error {
		var classifyErr error
		resp, classifyErr = c.client.Classify(ctx, prompt)
		return classifyErr
	}, c.retryOpts)
	if err != nil {
		slog.Warn("fallback classification failed",
			"transaction_id", txn.ID,
			"error", err)
		return nil
	}

	if !model.ContainsCategory(categories, resp.Category) {
		slog.Warn("fallback returned unknown category, discarding",
			"transaction_id", txn.ID,
			"category", resp.Category)
		return nil
	}

	prediction := model.Prediction{
		Category:   resp.Category,
		Confidence: c.confidence,
		Source:     model.SourceLLM,
	}
	c.cache.set(hash, prediction)

	slog.Debug("fallback classified transaction",
		"transaction_id", txn.ID,
		"category", prediction.Category)

	return &prediction
}

// Close releases the cache and rate limiter goroutines.
func (c *Classifier) Close() {
	c.cache.Close()
	c.limiter.Close()
}

// buildPrompt creates the classification prompt. The category set is
// closed: the model is told to answer Uncategorized rather than invent
// a label, and anything off-list is discarded by the caller anyway.
func buildPrompt(txn model.Transaction, categories []string) string {
	var list strings.Builder
	for _, cat := range categories {
		list.WriteString("- ")
		list.WriteString(cat)
		list.WriteString("\n")
	}

	return fmt.Sprintf(`Categorize this financial transaction into one of the categories below.

Transaction: %s
Amount: %.2f %s
Date: %s

Categories:
%s
Use ONLY one of the listed categories. If none fits, use "Uncategorized".
Respond with a JSON object: {"category": "<name>"}`,
		txn.Description,
		txn.Amount,
		txn.Currency,
		txn.Date.Format("2006-01-02"),
		list.String())
}
