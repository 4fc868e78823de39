package placement

import (
	"fmt"
	"strconv"
)

// Desk is the subset of a desk record the adjacency rules look at.
type Desk struct {
	ID     string
	Number string
	X      *int
	Y      *int
}

// AdjacencyMode selects the neighbour definition used by a deployment.
type AdjacencyMode string

const (
	// AdjacencySuffix compares trailing digits of equally shaped desk numbers and
	// falls back to grid coordinates.
	AdjacencySuffix AdjacencyMode = "suffix"
	// AdjacencyNumeric treats desk numbers as integers on a single row.
	AdjacencyNumeric AdjacencyMode = "numeric"
)

// ParseAdjacencyMode validates a configured mode. An empty value selects AdjacencySuffix.
func ParseAdjacencyMode(value string) (AdjacencyMode, error) {
	switch AdjacencyMode(value) {
	case "", AdjacencySuffix:
		return AdjacencySuffix, nil
	case AdjacencyNumeric:
		return AdjacencyNumeric, nil
	default:
		return "", fmt.Errorf("placement: unknown adjacency mode %q", value)
	}
}

// DataIntegrityWarning records a desk pair whose adjacency could not be decided.
// Such pairs are treated as not adjacent.
type DataIntegrityWarning struct {
	DeskA  string
	DeskB  string
	Reason string
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("desks %s and %s: %s", w.DeskA, w.DeskB, w.Reason)
}

// Adjacency decides whether two desks are neighbours.
type Adjacency struct {
	Mode AdjacencyMode
}

// NewAdjacency returns an Adjacency for mode, defaulting to AdjacencySuffix.
func NewAdjacency(mode AdjacencyMode) Adjacency {
	if mode == "" {
		mode = AdjacencySuffix
	}
	return Adjacency{Mode: mode}
}

// AreNeighbors reports whether a and b are adjacent. It does not exclude a desk
// from being its own neighbour; callers compare identities first.
func (a Adjacency) AreNeighbors(x, y Desk) bool {
	neighbors, _ := a.Resolve(x, y)
	return neighbors
}

// Resolve is AreNeighbors that also returns a warning when no rule could be applied.
func (a Adjacency) Resolve(x, y Desk) (bool, *DataIntegrityWarning) {
	if a.Mode == AdjacencyNumeric {
		if neighbors, ok := numericNeighbors(x.Number, y.Number); ok {
			return neighbors, nil
		}
		return false, &DataIntegrityWarning{DeskA: x.Number, DeskB: y.Number, Reason: "desk numbers are not integers"}
	}

	if neighbors, ok := suffixNeighbors(x.Number, y.Number); ok {
		return neighbors, nil
	}
	if neighbors, ok := coordinateNeighbors(x, y); ok {
		return neighbors, nil
	}
	return false, &DataIntegrityWarning{DeskA: x.Number, DeskB: y.Number, Reason: "no comparable suffix and coordinates missing"}
}

// suffixNeighbors applies only when both numbers have the same length, share
// every character but the last, and end in a digit.
func suffixNeighbors(a, b string) (neighbors bool, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return false, false
	}
	last := len(a) - 1
	if a[:last] != b[:last] {
		return false, false
	}
	da, db := a[last], b[last]
	if !isDigit(da) || !isDigit(db) {
		return false, false
	}
	return absInt(int(da)-int(db)) == 1, true
}

func coordinateNeighbors(a, b Desk) (neighbors bool, ok bool) {
	if a.X == nil || a.Y == nil || b.X == nil || b.Y == nil {
		return false, false
	}
	return absInt(*a.X-*b.X) <= 1 && absInt(*a.Y-*b.Y) <= 1, true
}

func numericNeighbors(a, b string) (neighbors bool, ok bool) {
	na, err := strconv.Atoi(a)
	if err != nil {
		return false, false
	}
	nb, err := strconv.Atoi(b)
	if err != nil {
		return false, false
	}
	return absInt(na-nb) == 1, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
