// Package selector picks one backend out of a candidate list.
package selector

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
)

// Rotation modes.
const (
	ModeSequential = "sequential"
	ModeRandom     = "random"
)

// ErrNoCandidates is returned when there is nothing to select from.
var ErrNoCandidates = errors.New("no backend candidates")

// Selector chooses one name from candidates.
type Selector interface {
	Select(candidates []string) (string, error)
}

// New returns the selector for mode. An empty mode is sequential.
func New(mode string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeSequential:
		return &RoundRobin{}, nil
	case ModeRandom:
		return Random{}, nil
	default:
		return nil, fmt.Errorf("unknown rotation mode %q (want %s or %s)", mode, ModeSequential, ModeRandom)
	}
}

// RoundRobin cycles through the candidates. The cursor is shared by every
// call, so callers that pass lists of different lengths still advance the
// same counter.
type RoundRobin struct {
	cursor atomic.Uint64
}

// Select returns the next candidate in turn.
func (r *RoundRobin) Select(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	n := r.cursor.Add(1) - 1
	return candidates[n%uint64(len(candidates))], nil
}

// Random picks a candidate uniformly at random.
type Random struct{}

// Select returns a random candidate.
func (Random) Select(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	return candidates[rand.IntN(len(candidates))], nil
}

// SplitCSV splits a comma-separated backend list, trimming blanks and
// dropping empty and duplicate names.
func SplitCSV(value string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
