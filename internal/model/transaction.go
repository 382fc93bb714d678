// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from the source of record.
type Transaction struct {
	Date        time.Time
	ID          string
	Description string
	Currency    string
	Category    string // Existing category, empty if uncategorized upstream
	Tags        []string
	Raw         json.RawMessage // Upstream payload, round-tripped untouched
	Amount      float64
}

// GenerateHash creates a stable hash for caching and duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.Currency)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
