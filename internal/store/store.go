// Package store persists the learned state: the memory table and the
// trained classifier model. It exclusively owns the on-disk artifacts;
// in-memory copies are swapped atomically by the engine.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmturner/cinnamon/internal/classify"
	"github.com/jmturner/cinnamon/internal/model"
)

// MemoryFormatVersion is the persisted format tag for the memory table.
const MemoryFormatVersion = 1

const (
	memoryFilename = "memory.json"
	modelFilename  = "classifier.json"
)

// LearningStore owns the file-based artifacts under a data directory.
type LearningStore struct {
	memoryPath string
	modelPath  string
}

// memoryArtifact is the on-disk shape of the learned memory table.
type memoryArtifact struct {
	Entries       map[string]model.MemoryEntry `json:"entries"`
	FormatVersion int                          `json:"format_version"`
}

// NewLearningStore creates a store rooted at dataDir, creating the
// directory if needed.
func NewLearningStore(dataDir string) (*LearningStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &LearningStore{
		memoryPath: filepath.Join(dataDir, memoryFilename),
		modelPath:  filepath.Join(dataDir, modelFilename),
	}, nil
}

// Load reads both artifacts. A missing, corrupt, or version-mismatched
// artifact degrades to an empty table or untrained model with a
// warning; startup never fails on bad learned state.
func (s *LearningStore) Load() (classify.MemoryTable, *classify.Model) {
	return s.loadMemory(), s.loadModel()
}

func (s *LearningStore) loadMemory() classify.MemoryTable {
	data, err := os.ReadFile(s.memoryPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read memory artifact, starting empty",
				"path", s.memoryPath, "error", err)
		}
		return make(classify.MemoryTable)
	}

	var artifact memoryArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		slog.Warn("Memory artifact corrupt, starting empty",
			"path", s.memoryPath, "error", err)
		return make(classify.MemoryTable)
	}
	if artifact.FormatVersion != MemoryFormatVersion {
		slog.Warn("Memory artifact has unknown format version, starting empty",
			"path", s.memoryPath, "version", artifact.FormatVersion)
		return make(classify.MemoryTable)
	}
	if artifact.Entries == nil {
		return make(classify.MemoryTable)
	}

	return classify.MemoryTable(artifact.Entries)
}

func (s *LearningStore) loadModel() *classify.Model {
	data, err := os.ReadFile(s.modelPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read classifier artifact, starting untrained",
				"path", s.modelPath, "error", err)
		}
		return nil
	}

	var m classify.Model
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("Classifier artifact corrupt, starting untrained",
			"path", s.modelPath, "error", err)
		return nil
	}
	if !m.Valid() {
		slog.Warn("Classifier artifact has unknown format or tokenizer version, starting untrained",
			"path", s.modelPath,
			"format_version", m.FormatVersion,
			"tokenizer_version", m.TokenizerVersion)
		return nil
	}

	return &m
}

// Save writes both artifacts crash-safely: each is written to a temp
// file and atomically renamed over the previous one, so a failure
// partway leaves the prior state intact. A nil model removes the
// classifier artifact.
func (s *LearningStore) Save(table classify.MemoryTable, m *classify.Model) error {
	artifact := memoryArtifact{
		FormatVersion: MemoryFormatVersion,
		Entries:       table,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory table: %w", err)
	}
	if err := writeAtomic(s.memoryPath, data); err != nil {
		return fmt.Errorf("failed to save memory table: %w", err)
	}

	if m == nil {
		if err := os.Remove(s.modelPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale classifier artifact: %w", err)
		}
		return nil
	}

	data, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal classifier model: %w", err)
	}
	if err := writeAtomic(s.modelPath, data); err != nil {
		return fmt.Errorf("failed to save classifier model: %w", err)
	}

	return nil
}

// writeAtomic writes data to a temp file in the target directory, syncs
// it, and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}

	return nil
}
