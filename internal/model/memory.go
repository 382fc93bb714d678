package model

import "time"

// MemoryEntry maps a normalized description key to a confirmed category.
// One category per key; the last confirmation wins.
type MemoryEntry struct {
	LastUsed time.Time `json:"last_used"`
	Category string    `json:"category"`
	UseCount int       `json:"use_count"`
}
