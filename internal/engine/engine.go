// Package engine orchestrates the categorization waterfall and the
// continuous-learning loop. Readers work against immutable snapshots
// of the learned state; learning is serialized behind a single-writer
// lock and only committed once the persisted artifacts are safely on
// disk.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmturner/cinnamon/internal/classify"
	"github.com/jmturner/cinnamon/internal/common"
	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/normalize"
	"github.com/jmturner/cinnamon/internal/service"
)

// Config holds thresholds and policy for the engine.
type Config struct {
	AutoApprove    AutoApprovalPolicy
	FuzzyThreshold float64 // minimum fuzzy-match similarity
	StatThreshold  float64 // minimum statistical confidence
	MinExamples    int     // smallest corpus the statistical model trains on
}

// DefaultConfig returns the default engine configuration.
// Auto-approval starts disabled; it commits categories upstream and
// should be an explicit opt-in.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: 0.9,
		StatThreshold:  0.5,
		MinExamples:    classify.DefaultMinExamples,
	}
}

// Dependencies are the engine's optional collaborators.
type Dependencies struct {
	Fallback Fallback           // nil when no LLM is configured
	Applier  Applier            // nil when auto-approval cannot commit upstream
	Audit    service.AuditStore // nil disables audit records
}

// snapshot is one immutable view of the learned state. A new snapshot
// replaces the current one by pointer swap on every successful learn.
type snapshot struct {
	matcher *classify.MemoryMatcher
	model   *classify.Model
}

// Engine is the categorization pipeline plus learning coordinator.
type Engine struct {
	store    LearningStore
	fallback Fallback
	applier  Applier
	audit    service.AuditStore
	snap     *snapshot
	cfg      Config
	mu       sync.RWMutex // guards snap
	learnMu  sync.Mutex   // serializes Learn end to end
}

// New loads persisted state and constructs the engine. Corrupt or
// missing artifacts degrade to an empty memory and untrained model
// inside the store; startup never fails on learned state.
func New(cfg Config, st LearningStore, deps Dependencies) *Engine {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = DefaultConfig().FuzzyThreshold
	}
	if cfg.StatThreshold <= 0 {
		cfg.StatThreshold = DefaultConfig().StatThreshold
	}
	if cfg.MinExamples <= 0 {
		cfg.MinExamples = classify.DefaultMinExamples
	}

	table, m := st.Load()

	e := &Engine{
		cfg:      cfg,
		store:    st,
		fallback: deps.Fallback,
		applier:  deps.Applier,
		audit:    deps.Audit,
		snap: &snapshot{
			matcher: classify.NewMemoryMatcher(table, cfg.FuzzyThreshold),
			model:   m,
		},
	}

	slog.Info("engine initialized",
		"memory_entries", len(table),
		"model_trained", m.Trained(),
		"fallback_enabled", deps.Fallback != nil)

	return e
}

// snapshot returns the current immutable view.
func (e *Engine) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// MemorySize reports the number of learned entries.
func (e *Engine) MemorySize() int {
	return len(e.snapshot().matcher.Table())
}

// Memory returns a copy of the learned table for display.
func (e *Engine) Memory() classify.MemoryTable {
	return e.snapshot().matcher.Table().Clone()
}

// ModelTrained reports whether the statistical stage is usable.
func (e *Engine) ModelTrained() bool {
	return e.snapshot().model.Trained()
}

// Classify runs the waterfall for one transaction against the current
// snapshot. It is read-only and safe to call concurrently with Learn.
// A nil prediction means every stage missed; callers surface that as
// "Unknown", never as an error.
func (e *Engine) Classify(ctx context.Context, txn model.Transaction, categories []string) *model.Prediction {
	return e.classifyWith(ctx, e.snapshot(), txn, categories)
}

func (e *Engine) classifyWith(ctx context.Context, snap *snapshot, txn model.Transaction, categories []string) *model.Prediction {
	key := normalize.Key(txn.Description)
	if key == "" {
		return nil
	}

	// Stages 1+2: exact then fuzzy memory match.
	if pred := snap.matcher.Lookup(key, categories); pred != nil {
		return pred
	}

	// Stage 3: statistical.
	if pred := snap.model.Predict(key); pred != nil &&
		pred.Confidence >= e.cfg.StatThreshold &&
		model.ContainsCategory(categories, pred.Category) {
		return pred
	}

	// Stage 4: LLM fallback, when configured.
	if e.fallback != nil {
		return e.fallback.Predict(ctx, txn, categories)
	}

	return nil
}

// Learn consumes a confirmed (transaction, category) pair: it updates
// the memory table, retrains the statistical model from the full
// corpus, and persists both. The steps run as one serialized
// transaction; the in-memory state is only swapped after a successful
// save, so any failure leaves readers on the pre-update snapshot.
func (e *Engine) Learn(ctx context.Context, event model.LearningEvent) error {
	key := normalize.Key(event.Transaction.Description)
	if key == "" {
		return common.NewUserError("cannot learn from an empty description", nil)
	}
	if event.Category == "" {
		return common.NewUserError("cannot learn an empty category", nil)
	}

	e.learnMu.Lock()
	defer e.learnMu.Unlock()

	table := e.snapshot().matcher.Table().Clone()
	matcher := classify.NewMemoryMatcher(table, e.cfg.FuzzyThreshold)
	matcher.Record(key, event.Category)

	m := classify.Train(classify.BuildCorpus(table), e.cfg.MinExamples)

	start := time.Now()
	if err := e.store.Save(table, m); err != nil {
		return fmt.Errorf("%w: %v", common.ErrLearningFailed, err)
	}

	e.mu.Lock()
	e.snap = &snapshot{matcher: matcher, model: m}
	e.mu.Unlock()

	slog.Info("learned categorization",
		"key", key,
		"category", event.Category,
		"suggested", event.SuggestedCategory,
		"memory_entries", len(table),
		"model_trained", m.Trained(),
		"duration", time.Since(start))

	e.markTrained(ctx, event.Transaction.ID)

	return nil
}

// markTrained records the transaction in the audit ledger so bulk
// training skips it. Best effort only.
func (e *Engine) markTrained(ctx context.Context, transactionID string) {
	if e.audit == nil || transactionID == "" {
		return
	}
	if err := e.audit.MarkTrained(ctx, transactionID); err != nil {
		slog.Warn("failed to mark transaction as trained",
			"transaction_id", transactionID,
			"error", err)
	}
}

// recordPrediction appends an audit row for an emitted prediction.
// Best effort only; audit failures never affect results.
func (e *Engine) recordPrediction(ctx context.Context, txn model.Transaction, pred *model.Prediction, autoApproved bool) {
	if e.audit == nil || pred == nil {
		return
	}

	rec := &service.PredictionRecord{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		Description:   txn.Description,
		Category:      pred.Category,
		Source:        pred.Source,
		Confidence:    pred.Confidence,
		AutoApproved:  autoApproved,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.audit.RecordPrediction(ctx, rec); err != nil {
		slog.Warn("failed to record prediction",
			"transaction_id", txn.ID,
			"error", err)
	}
}
