package model

import "strings"

// ParseTagList splits a comma-separated tag string into an ordered,
// de-duplicated slice. Empty segments are dropped.
func ParseTagList(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		tags = append(tags, tag)
		seen[tag] = struct{}{}
	}
	return tags
}

// NormalizeTags trims and de-duplicates a tag slice, preserving order.
func NormalizeTags(raw []string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, item := range raw {
		tag := strings.TrimSpace(item)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		tags = append(tags, tag)
		seen[tag] = struct{}{}
	}
	return tags
}

// MergeTags appends newTags to existing, keeping first-seen order and
// dropping duplicates.
func MergeTags(existing, newTags []string) []string {
	merged := make([]string, 0, len(existing)+len(newTags))
	seen := make(map[string]struct{})
	for _, tag := range existing {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		merged = append(merged, tag)
		seen[tag] = struct{}{}
	}
	for _, tag := range newTags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		merged = append(merged, tag)
		seen[tag] = struct{}{}
	}
	return merged
}
