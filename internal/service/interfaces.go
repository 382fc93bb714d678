// Package service defines the interfaces shared between application layers.
package service

import (
	"context"
	"time"

	"github.com/jmturner/cinnamon/internal/model"
)

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// TransactionSource is the external system of record for transactions
// and the category set. The engine never creates categories itself.
type TransactionSource interface {
	Categories(ctx context.Context) ([]string, error)
	ListTransactions(ctx context.Context, opts TransactionListOptions) (*TransactionPage, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, id, category string, tags []string) error
}

// TransactionListOptions filters a transaction page request.
type TransactionListOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// TransactionPage is one page of transactions plus pagination metadata.
type TransactionPage struct {
	Transactions []model.Transaction
	Page         int
	TotalPages   int
	Total        int
}

// LLMSuggestion represents a single fallback classification suggestion.
type LLMSuggestion struct {
	TransactionID string
	Category      string
	Confidence    float64
}

// AuditStore records prediction and learning outcomes for later review.
type AuditStore interface {
	RecordPrediction(ctx context.Context, rec *PredictionRecord) error
	RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error)
	MarkTrained(ctx context.Context, transactionID string) error
	IsTrained(ctx context.Context, transactionID string) (bool, error)
	Migrate(ctx context.Context) error
	Close() error
}

// PredictionRecord is one audited prediction or learning event.
type PredictionRecord struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	Description   string
	Category      string
	Source        model.Source
	Confidence    float64
	AutoApproved  bool
}
