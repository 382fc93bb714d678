package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmturner/cinnamon/internal/model"
)

// fakeApplier records upstream category updates.
type fakeApplier struct {
	updates map[string]string
	err     error
	mu      sync.Mutex
}

func (a *fakeApplier) UpdateTransaction(_ context.Context, id, category string, _ []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.updates == nil {
		a.updates = make(map[string]string)
	}
	a.updates[id] = category
	return nil
}

func (a *fakeApplier) category(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates[id]
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining event stream")
		}
	}
}

func TestPredictBatchStream(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil, Dependencies{})
	learn(t, e, "STARBUCKS #123", "Coffee")

	txns := []model.Transaction{
		{ID: "tx-1", Description: "STARBUCKS #123"},
		{ID: "tx-2", Description: "UNSEEN MERCHANT"},
	}

	events := collect(t, e.PredictBatch(context.Background(), txns, nil))
	require.Len(t, events, 3)

	assert.Equal(t, EventResult, events[0].Type)
	require.NotNil(t, events[0].Result.Prediction)
	assert.Equal(t, "tx-1", events[0].Result.TransactionID)
	assert.Equal(t, "Coffee", events[0].Result.Prediction.Category)

	assert.Equal(t, EventResult, events[1].Type)
	assert.Equal(t, "tx-2", events[1].Result.TransactionID)
	assert.Nil(t, events[1].Result.Prediction, "a full miss streams as an empty result")

	assert.Equal(t, EventDone, events[2].Type)
}

func TestPredictBatchEmpty(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil, Dependencies{})

	events := collect(t, e.PredictBatch(context.Background(), nil, nil))
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}

func TestPredictBatchExistingCategoryPassthrough(t *testing.T) {
	fb := &fakeFallback{pred: &model.Prediction{Category: "Wrong", Source: model.SourceLLM, Confidence: 0.9}}
	e := newTestEngine(t, DefaultConfig(), nil, Dependencies{Fallback: fb})

	txns := []model.Transaction{
		{ID: "tx-1", Description: "STARBUCKS #123", Category: "Coffee"},
	}

	events := collect(t, e.PredictBatch(context.Background(), txns, nil))
	require.Len(t, events, 2)
	assert.Equal(t, "Coffee", events[0].Result.ExistingCategory)
	assert.Nil(t, events[0].Result.Prediction)
	assert.Equal(t, 0, fb.callCount(), "categorized transactions are never reclassified")
}

func TestPredictBatchCancellation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil, Dependencies{})

	txns := make([]model.Transaction, 100)
	for i := range txns {
		txns[i] = model.Transaction{ID: fmt.Sprintf("tx-%d", i), Description: fmt.Sprintf("merchant %d", i)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := e.PredictBatch(ctx, txns, nil)

	// Consume one result, then walk away.
	ev, ok := <-events
	require.True(t, ok)
	assert.Equal(t, EventResult, ev.Type)
	cancel()

	drained := collect(t, events)
	for _, ev := range drained {
		assert.NotEqual(t, EventDone, ev.Type, "a canceled stream must not report completion")
	}
	assert.Less(t, len(drained), len(txns))
}

func TestPredictBatchAutoApproves(t *testing.T) {
	applier := &fakeApplier{}
	cfg := DefaultConfig()
	cfg.AutoApprove = AutoApprovalPolicy{Threshold: 0.9, ApproveTags: []string{"auto-categorized"}}
	e := newTestEngine(t, cfg, nil, Dependencies{Applier: applier})
	learn(t, e, "STARBUCKS #123", "Coffee")

	txns := []model.Transaction{{ID: "tx-1", Description: "STARBUCKS #123"}}

	events := collect(t, e.PredictBatch(context.Background(), txns, nil))
	require.Len(t, events, 2)

	result := events[0].Result
	require.NotNil(t, result)
	assert.True(t, result.AutoApproved)
	assert.Equal(t, "Coffee", result.ExistingCategory)
	assert.Nil(t, result.Prediction, "approved predictions surface as committed categories")
	assert.Equal(t, "Coffee", applier.category("tx-1"))
	assert.Equal(t, EventDone, events[1].Type)

	// Approval also feeds the learning loop.
	table := e.Memory()
	assert.Equal(t, 2, table["starbucks #123"].UseCount)
}

func TestPredictBatchBelowApprovalThreshold(t *testing.T) {
	applier := &fakeApplier{}
	fb := &fakeFallback{pred: &model.Prediction{Category: "Coffee", Source: model.SourceLLM, Confidence: 0.9}}
	cfg := DefaultConfig()
	cfg.AutoApprove = AutoApprovalPolicy{Threshold: 0.95}
	e := newTestEngine(t, cfg, nil, Dependencies{Fallback: fb, Applier: applier})

	txns := []model.Transaction{{ID: "tx-1", Description: "STARBUCKS #123"}}

	events := collect(t, e.PredictBatch(context.Background(), txns, []string{"Coffee"}))
	require.Len(t, events, 2)

	result := events[0].Result
	require.NotNil(t, result.Prediction)
	assert.False(t, result.AutoApproved)
	assert.Empty(t, applier.category("tx-1"))
}

func TestPredictBatchApplyFailureEndsStream(t *testing.T) {
	applier := &fakeApplier{err: fmt.Errorf("firefly unavailable")}
	cfg := DefaultConfig()
	cfg.AutoApprove = AutoApprovalPolicy{Threshold: 0.9}
	e := newTestEngine(t, cfg, nil, Dependencies{Applier: applier})
	learn(t, e, "STARBUCKS #123", "Coffee")

	txns := []model.Transaction{
		{ID: "tx-1", Description: "STARBUCKS #123"},
		{ID: "tx-2", Description: "NEVER REACHED"},
	}

	events := collect(t, e.PredictBatch(context.Background(), txns, nil))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Err, "firefly unavailable")
}

func TestPredictBatchApprovalWithoutApplier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoApprove = AutoApprovalPolicy{Threshold: 0.9}
	e := newTestEngine(t, cfg, nil, Dependencies{})
	learn(t, e, "STARBUCKS #123", "Coffee")

	txns := []model.Transaction{{ID: "tx-1", Description: "STARBUCKS #123"}}

	events := collect(t, e.PredictBatch(context.Background(), txns, nil))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestPredictBatchUsesOneSnapshot(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil, Dependencies{})
	learn(t, e, "STARBUCKS #123", "Coffee")

	txns := []model.Transaction{
		{ID: "tx-1", Description: "STARBUCKS #123"},
		{ID: "tx-2", Description: "STARBUCKS #123"},
	}

	events := e.PredictBatch(context.Background(), txns, nil)

	first := <-events
	require.Equal(t, EventResult, first.Type)

	// A learn between items must not leak into the running stream.
	learn(t, e, "STARBUCKS #123", "Dining Out")

	second := <-events
	require.Equal(t, EventResult, second.Type)
	assert.Equal(t, "Coffee", second.Result.Prediction.Category)

	rest := collect(t, events)
	require.Len(t, rest, 1)
	assert.Equal(t, EventDone, rest[0].Type)
}
