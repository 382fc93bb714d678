// Package classify implements the categorization strategies: the
// learned memory matcher and the TF-IDF statistical model. Both are
// read-only at prediction time; all mutation happens through the
// engine's learning path.
package classify

import (
	"time"

	"github.com/jmturner/cinnamon/internal/model"
)

// MemoryTable maps normalized description keys to confirmed categories.
// It is the ground truth of user confirmations and the training corpus
// for the statistical model.
type MemoryTable map[string]model.MemoryEntry

// Clone returns a shallow copy safe to mutate independently.
func (t MemoryTable) Clone() MemoryTable {
	clone := make(MemoryTable, len(t))
	for k, v := range t {
		clone[k] = v
	}
	return clone
}

// MemoryMatcher resolves predictions from previously confirmed
// (description, category) pairs, first by exact key lookup and then by
// fuzzy similarity against all stored keys.
type MemoryMatcher struct {
	table          MemoryTable
	fuzzyThreshold float64
}

// NewMemoryMatcher creates a matcher over the given table. The table is
// not copied; callers own its lifecycle and must not mutate it while
// lookups are in flight.
func NewMemoryMatcher(table MemoryTable, fuzzyThreshold float64) *MemoryMatcher {
	if table == nil {
		table = make(MemoryTable)
	}
	return &MemoryMatcher{
		table:          table,
		fuzzyThreshold: fuzzyThreshold,
	}
}

// Table exposes the underlying memory table.
func (m *MemoryMatcher) Table() MemoryTable {
	return m.table
}

// Lookup resolves a normalized key against the table. An exact hit
// returns confidence 1.0; otherwise the best fuzzy match at or above
// the configured threshold returns its similarity score as confidence.
// Entries whose category is not in the valid set are skipped.
func (m *MemoryMatcher) Lookup(key string, valid []string) *model.Prediction {
	if len(m.table) == 0 || key == "" {
		return nil
	}

	if entry, ok := m.table[key]; ok && model.ContainsCategory(valid, entry.Category) {
		return &model.Prediction{
			Category:   entry.Category,
			Confidence: 1.0,
			Source:     model.SourceMemoryExact,
		}
	}

	bestKey, bestScore := m.bestFuzzyMatch(key, valid)
	if bestKey == "" || bestScore < m.fuzzyThreshold {
		return nil
	}

	return &model.Prediction{
		Category:   m.table[bestKey].Category,
		Confidence: bestScore,
		Source:     model.SourceMemoryFuzzy,
	}
}

// bestFuzzyMatch scans all stored keys. Ties are broken by use count,
// then recency, then key order so results are deterministic regardless
// of map iteration order.
func (m *MemoryMatcher) bestFuzzyMatch(key string, valid []string) (string, float64) {
	var bestKey string
	var bestScore float64

	for stored, entry := range m.table {
		if !model.ContainsCategory(valid, entry.Category) {
			continue
		}

		score := TokenSortRatio(key, stored)
		if score < bestScore {
			continue
		}
		if score == bestScore && bestKey != "" && !m.beats(stored, bestKey) {
			continue
		}
		bestKey = stored
		bestScore = score
	}

	return bestKey, bestScore
}

// beats reports whether candidate should win a score tie against current.
func (m *MemoryMatcher) beats(candidate, current string) bool {
	c, cur := m.table[candidate], m.table[current]
	if c.UseCount != cur.UseCount {
		return c.UseCount > cur.UseCount
	}
	if !c.LastUsed.Equal(cur.LastUsed) {
		return c.LastUsed.After(cur.LastUsed)
	}
	return candidate < current
}

// Record upserts a confirmed mapping. A repeated confirmation of the
// same category bumps the use count; a different category overwrites
// the entry and resets it (last confirmation wins). Persistence is the
// caller's responsibility, and callers must serialize Record calls.
func (m *MemoryMatcher) Record(key, category string) {
	now := time.Now().UTC()

	entry, ok := m.table[key]
	if ok && entry.Category == category {
		entry.UseCount++
		entry.LastUsed = now
		m.table[key] = entry
		return
	}

	m.table[key] = model.MemoryEntry{
		Category: category,
		UseCount: 1,
		LastUsed: now,
	}
}
