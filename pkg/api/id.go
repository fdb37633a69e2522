package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const requestIDPrefix = "req_"

var requestIDPattern = regexp.MustCompile(`^req_[0-9a-f]{32}$`)

// NewRequestID generates a request ID: "req_" followed by the 32 hex digits
// of a random UUID.
func NewRequestID() string {
	return requestIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateRequestID reports whether id has the form produced by NewRequestID.
func ValidateRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}
