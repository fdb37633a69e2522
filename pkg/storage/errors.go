package storage

import "errors"

var (
	// ErrNotFound covers both a missing entry and one owned by another tenant.
	ErrNotFound = errors.New("request log entry not found")

	ErrConflict = errors.New("request log entry already exists")
)
