package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmturner/cinnamon/internal/classify"
	"github.com/jmturner/cinnamon/internal/model"
)

func TestLearningStoreRoundTrip(t *testing.T) {
	s, err := NewLearningStore(t.TempDir())
	require.NoError(t, err)

	table := classify.MemoryTable{
		"starbucks #123": {Category: "Coffee", UseCount: 3, LastUsed: time.Now().UTC().Truncate(time.Second)},
		"whole foods":    {Category: "Groceries", UseCount: 1, LastUsed: time.Now().UTC().Truncate(time.Second)},
	}
	trained := classify.Train([]classify.Example{
		{Text: "starbucks coffee", Category: "Coffee"},
		{Text: "whole foods market", Category: "Groceries"},
	}, 2)
	require.True(t, trained.Trained())

	require.NoError(t, s.Save(table, trained))

	gotTable, gotModel := s.Load()
	assert.Equal(t, table, gotTable)
	require.True(t, gotModel.Trained())

	// Reloaded model must reproduce predictions bit-identically.
	queries := []string{"starbucks run", "whole foods haul", "coffee"}
	for _, q := range queries {
		before := trained.Predict(q)
		after := gotModel.Predict(q)
		assert.Equal(t, before, after, "query %q", q)
	}
}

func TestLearningStoreLoadMissing(t *testing.T) {
	s, err := NewLearningStore(t.TempDir())
	require.NoError(t, err)

	table, m := s.Load()
	assert.Empty(t, table)
	assert.NotNil(t, table, "missing artifact yields a usable empty table")
	assert.Nil(t, m)
}

func TestLearningStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLearningStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, memoryFilename), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, modelFilename), []byte("garbage"), 0o600))

	table, m := s.Load()
	assert.Empty(t, table)
	assert.Nil(t, m)
}

func TestLearningStoreLoadVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLearningStore(dir)
	require.NoError(t, err)

	bad, err := json.Marshal(memoryArtifact{
		FormatVersion: 99,
		Entries:       map[string]model.MemoryEntry{"key": {Category: "X"}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, memoryFilename), bad, 0o600))

	table, _ := s.Load()
	assert.Empty(t, table, "unknown version is treated as absent, not guessed at")
}

func TestLearningStoreSaveNilModelRemovesArtifact(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLearningStore(dir)
	require.NoError(t, err)

	trained := classify.Train([]classify.Example{
		{Text: "starbucks", Category: "Coffee"},
		{Text: "safeway", Category: "Groceries"},
	}, 2)
	require.NoError(t, s.Save(classify.MemoryTable{}, trained))
	require.FileExists(t, filepath.Join(dir, modelFilename))

	require.NoError(t, s.Save(classify.MemoryTable{}, nil))
	assert.NoFileExists(t, filepath.Join(dir, modelFilename))

	_, m := s.Load()
	assert.Nil(t, m)
}

func TestLearningStoreSaveOverwrites(t *testing.T) {
	s, err := NewLearningStore(t.TempDir())
	require.NoError(t, err)

	first := classify.MemoryTable{"a": {Category: "X", UseCount: 1}}
	require.NoError(t, s.Save(first, nil))

	second := classify.MemoryTable{"a": {Category: "Y", UseCount: 2}, "b": {Category: "Z", UseCount: 1}}
	require.NoError(t, s.Save(second, nil))

	got, _ := s.Load()
	assert.Equal(t, second, got)
}
