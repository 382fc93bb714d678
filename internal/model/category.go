package model

// Category is a label from the closed set owned by the external
// transaction source. The engine never invents new categories.
type Category struct {
	Name string
	ID   string // Source-assigned identifier, empty for ad hoc values
}

// ContainsCategory reports whether name appears in the valid set.
// A nil set means validation is disabled.
func ContainsCategory(valid []string, name string) bool {
	if valid == nil {
		return true
	}
	for _, v := range valid {
		if v == name {
			return true
		}
	}
	return false
}
