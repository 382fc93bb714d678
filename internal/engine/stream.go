package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jmturner/cinnamon/internal/model"
)

// EventType discriminates streaming events.
type EventType string

// Streaming event types. Every stream ends with exactly one terminal
// event (done or error) unless the consumer cancels first.
const (
	EventResult EventType = "result"
	EventDone   EventType = "done"
	EventError  EventType = "error"
)

// Event is one item on a prediction stream.
type Event struct {
	Result *Result
	Err    string
	Type   EventType
}

// Result is the per-transaction outcome on a prediction stream.
type Result struct {
	Prediction       *model.Prediction
	TransactionID    string
	ExistingCategory string
	AutoApproved     bool
}

// PredictBatch streams per-transaction predictions over a channel so
// consumers see results incrementally. The stream is lazy, finite and
// non-restartable: it classifies against a single snapshot taken at
// start, emits one result per transaction, and terminates with a done
// event, or an error event on internal failure. Canceling ctx stops
// the stream between items; predictions are pure reads, so there is
// nothing to roll back.
//
// Transactions that already carry a category pass through unchanged.
// When auto-approval is enabled and an applier is configured, approved
// predictions are committed upstream and learned before being emitted
// as existing categories.
func (e *Engine) PredictBatch(ctx context.Context, txns []model.Transaction, categories []string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		session := uuid.NewString()
		snap := e.snapshot()

		slog.Debug("prediction stream started",
			"session", session,
			"transactions", len(txns))

		for i := range txns {
			select {
			case <-ctx.Done():
				slog.Debug("prediction stream canceled", "session", session, "emitted", i)
				return
			default:
			}

			result, err := e.processStreamItem(ctx, snap, txns[i], categories)
			if err != nil {
				e.emit(ctx, events, Event{Type: EventError, Err: err.Error()})
				return
			}

			if !e.emit(ctx, events, Event{Type: EventResult, Result: result}) {
				return
			}
		}

		e.emit(ctx, events, Event{Type: EventDone})
		slog.Debug("prediction stream complete", "session", session, "emitted", len(txns))
	}()

	return events
}

// processStreamItem computes one stream result. An error here is the
// stream's terminal failure.
func (e *Engine) processStreamItem(ctx context.Context, snap *snapshot, txn model.Transaction, categories []string) (*Result, error) {
	result := &Result{
		TransactionID:    txn.ID,
		ExistingCategory: txn.Category,
	}

	// Already categorized upstream; nothing to predict.
	if txn.Category != "" {
		return result, nil
	}

	pred := e.classifyWith(ctx, snap, txn, categories)
	if pred == nil {
		return result, nil
	}

	approved, reason := e.cfg.AutoApprove.Decide(pred)
	if !approved {
		slog.Debug("prediction pending confirmation",
			"transaction_id", txn.ID,
			"category", pred.Category,
			"confidence", pred.Confidence,
			"reason", reason)
		result.Prediction = pred
		e.recordPrediction(ctx, txn, pred, false)
		return result, nil
	}

	if err := e.applyApproved(ctx, txn, pred); err != nil {
		return nil, err
	}

	// Committed upstream; present it as the transaction's category.
	result.ExistingCategory = pred.Category
	result.AutoApproved = true
	e.recordPrediction(ctx, txn, pred, true)

	return result, nil
}

// applyApproved commits an auto-approved category to the source of
// record and learns from it. Without an applier the approval cannot be
// committed, so it degrades to a pending prediction upstream of here.
func (e *Engine) applyApproved(ctx context.Context, txn model.Transaction, pred *model.Prediction) error {
	if e.applier == nil {
		return fmt.Errorf("auto-approval enabled but no transaction source configured")
	}

	slog.Info("auto-approving transaction",
		"transaction_id", txn.ID,
		"category", pred.Category,
		"confidence", pred.Confidence,
		"threshold", e.cfg.AutoApprove.Threshold)

	tags := model.MergeTags(txn.Tags, e.cfg.AutoApprove.ApproveTags)
	if err := e.applier.UpdateTransaction(ctx, txn.ID, pred.Category, tags); err != nil {
		return fmt.Errorf("failed to apply auto-approved category: %w", err)
	}

	event := model.LearningEvent{
		Transaction:       txn,
		Category:          pred.Category,
		SuggestedCategory: pred.Category,
		Tags:              tags,
	}
	if err := e.Learn(ctx, event); err != nil {
		// The upstream commit already happened; losing the learning
		// update is recoverable on the next confirmation.
		slog.Warn("auto-approved but learning failed",
			"transaction_id", txn.ID,
			"error", err)
	}

	return nil
}

// emit sends an event unless the consumer has gone away.
func (e *Engine) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
