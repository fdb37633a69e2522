package storage

// Page size bounds for list operations.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
