package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic identifiers of the form "<prefix>-<n>".
// Each prefix counts independently.
type IDGenerator struct {
	mu       sync.Mutex
	prefix   string
	counters map[string]uint64
}

// NewIDGenerator returns a generator whose Next uses prefix, or "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix, counters: make(map[string]uint64)}
}

func (g *IDGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counters[prefix])
}

// Next returns the next identifier for the default prefix.
func (g *IDGenerator) Next() string {
	return g.next(g.prefix)
}

// NextFunc exposes Next for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Sequence returns a generator function bound to prefix, e.g. Sequence("desk")
// yields desk-1, desk-2, ...
func (g *IDGenerator) Sequence(prefix string) func() string {
	return func() string { return g.next(prefix) }
}

// Reset clears every counter.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counters = make(map[string]uint64)
	g.mu.Unlock()
}
