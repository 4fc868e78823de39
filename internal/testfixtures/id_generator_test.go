package testfixtures

import "testing"

func TestIDGeneratorSequences(t *testing.T) {
	gen := NewIDGenerator("")
	desks := gen.Sequence("desk")

	if got := gen.Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
	if got := desks(); got != "desk-1" {
		t.Fatalf("expected desk-1, got %q", got)
	}
	if got := desks(); got != "desk-2" {
		t.Fatalf("expected desk-2, got %q", got)
	}
	if got := gen.NextFunc()(); got != "id-2" {
		t.Fatalf("expected id-2, got %q", got)
	}

	gen.Reset()
	if got := desks(); got != "desk-1" {
		t.Fatalf("expected counters to reset, got %q", got)
	}
}
