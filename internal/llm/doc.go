// Package llm provides the optional language-model fallback for
// transaction categorization. It supports OpenAI and Anthropic
// backends, with retry logic, rate limiting, and response caching.
// The fallback is constrained to the known category set and degrades
// to no-result on any failure; it never raises into the pipeline.
package llm
