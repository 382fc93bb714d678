package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmturner/cinnamon/internal/model"
	"github.com/jmturner/cinnamon/internal/normalize"
)

func TestMemoryMatcherExact(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.9)
	m.Record(normalize.Key("STARBUCKS #123"), "Coffee")

	pred := m.Lookup("starbucks #123", nil)
	require.NotNil(t, pred)
	assert.Equal(t, "Coffee", pred.Category)
	assert.Equal(t, model.SourceMemoryExact, pred.Source)
	assert.Equal(t, 1.0, pred.Confidence)
}

func TestMemoryMatcherFuzzy(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.75)
	m.Record(normalize.Key("STARBUCKS #123"), "Coffee")

	pred := m.Lookup(normalize.Key("STARBUCKS #456"), nil)
	require.NotNil(t, pred)
	assert.Equal(t, "Coffee", pred.Category)
	assert.Equal(t, model.SourceMemoryFuzzy, pred.Source)
	assert.Less(t, pred.Confidence, 1.0)
	assert.GreaterOrEqual(t, pred.Confidence, 0.75)
}

func TestMemoryMatcherFuzzyBelowThreshold(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.75)
	m.Record(normalize.Key("STARBUCKS #123"), "Coffee")

	assert.Nil(t, m.Lookup(normalize.Key("STARBUCKS ZZZZZZ"), nil))
	assert.Nil(t, m.Lookup(normalize.Key("HOME DEPOT 4521"), nil))
}

func TestMemoryMatcherEmptyTable(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.9)
	assert.Nil(t, m.Lookup("anything", nil))
	assert.Nil(t, m.Lookup("", nil))
}

func TestMemoryMatcherValidCategoryFilter(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.9)
	m.Record("netflix", "Streaming")

	assert.Nil(t, m.Lookup("netflix", []string{"Groceries", "Rent"}))

	pred := m.Lookup("netflix", []string{"Streaming"})
	require.NotNil(t, pred)
	assert.Equal(t, "Streaming", pred.Category)
}

func TestMemoryMatcherTieBreakUseCount(t *testing.T) {
	table := MemoryTable{
		"corner shop aa": {Category: "Groceries", UseCount: 1, LastUsed: time.Now()},
		"corner shop bb": {Category: "Snacks", UseCount: 9, LastUsed: time.Now()},
	}
	m := NewMemoryMatcher(table, 0.5)

	// Equidistant from both stored keys; the heavier-used entry wins.
	pred := m.Lookup("corner shop cc", nil)
	require.NotNil(t, pred)
	assert.Equal(t, "Snacks", pred.Category)
}

func TestMemoryMatcherRecordOverwrites(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.9)
	m.Record("netflix", "Entertainment")
	m.Record("netflix", "Streaming")

	assert.Len(t, m.Table(), 1)
	entry := m.Table()["netflix"]
	assert.Equal(t, "Streaming", entry.Category)
	assert.Equal(t, 1, entry.UseCount, "use count resets when the category changes")
}

func TestMemoryMatcherRecordIdempotent(t *testing.T) {
	m := NewMemoryMatcher(nil, 0.9)
	m.Record("netflix", "Streaming")
	first := m.Lookup("netflix", nil)

	m.Record("netflix", "Streaming")
	assert.Len(t, m.Table(), 1)
	assert.Equal(t, 2, m.Table()["netflix"].UseCount)

	second := m.Lookup("netflix", nil)
	assert.Equal(t, first, second, "repeat confirmation must not change predictions")
}

func TestMemoryTableClone(t *testing.T) {
	table := MemoryTable{"a": {Category: "X", UseCount: 1}}
	clone := table.Clone()
	clone["a"] = model.MemoryEntry{Category: "Y", UseCount: 2}
	clone["b"] = model.MemoryEntry{Category: "Z"}

	assert.Equal(t, "X", table["a"].Category)
	assert.Len(t, table, 1)
}
