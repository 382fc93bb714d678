package model

// Source identifies which stage of the waterfall produced a prediction.
type Source string

// Prediction sources, in waterfall order.
const (
	SourceMemoryExact Source = "memory_exact"
	SourceMemoryFuzzy Source = "memory_fuzzy"
	SourceStatistical Source = "statistical"
	SourceLLM         Source = "llm"
)

// Prediction is the outcome of categorizing a single transaction.
// Confidence is in [0,1] and is only comparable against the threshold
// configured for its source, not across sources.
type Prediction struct {
	Category   string  `json:"category"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
}
