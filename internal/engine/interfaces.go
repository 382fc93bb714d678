package engine

import (
	"context"

	"github.com/jmturner/cinnamon/internal/classify"
	"github.com/jmturner/cinnamon/internal/model"
)

// LearningStore persists the learned state. Save must be atomic: a
// failure partway leaves the previous artifacts loadable.
type LearningStore interface {
	Load() (classify.MemoryTable, *classify.Model)
	Save(table classify.MemoryTable, m *classify.Model) error
}

// Fallback is the optional last-resort classifier. Implementations
// must degrade to nil on any failure rather than returning errors.
type Fallback interface {
	Predict(ctx context.Context, txn model.Transaction, categories []string) *model.Prediction
}

// Applier commits an approved category to the transaction source of
// record.
type Applier interface {
	UpdateTransaction(ctx context.Context, id, category string, tags []string) error
}
