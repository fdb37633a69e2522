package api

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const logIDPrefix = "log_"

// LogEntry records one executed backend call.
type LogEntry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Kind     Kind      `json:"kind"`
	Target   []string  `json:"target"`
	Backend  string    `json:"backend"`
	Endpoint string    `json:"endpoint"`
	Duration float64   `json:"duration"`
	Status   int       `json:"status"`
	Error    string    `json:"error,omitempty"`

	// Tenant scopes the entry to the authenticated caller. It is not
	// exposed on the wire.
	Tenant string `json:"-"`
}

// LogList is a page of request log entries.
type LogList struct {
	Object  string      `json:"object"`
	Data    []*LogEntry `json:"data"`
	HasMore bool        `json:"has_more"`
	FirstID string      `json:"first_id"`
	LastID  string      `json:"last_id"`
}

// NewLogID generates a request log entry ID.
func NewLogID() string {
	return logIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
